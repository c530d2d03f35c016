package kits

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, `
kits:
  - test_type: urine
    kit_id: 1
    name: V-CHECK(6)
    analytes: [BUP, MDMA, MET, MOR, COC, THC]
  - test_type: urine
    kit_id: 3
    name: V-CHECK(13)
    two_sided: true
    analytes: [AMP, BAR, BUP, BZO, COC, MDMA, MET, MTD, OPI, PCP, PPX, TCA, THC]
  - test_type: saliva
    kit_id: 1
    name: V-CHECK(6)
    analytes: [AMP, MET, THC, OPI, COC, BZO]
`)

	catalog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, catalog.Kits, 3)

	kit, ok := catalog.Find("urine", 3)
	require.True(t, ok)
	assert.True(t, kit.TwoSided)
	assert.Len(t, kit.Analytes, 13)
	assert.Equal(t, "AMP", kit.Analytes[0], "analyte order must follow the file")
	assert.Equal(t, "THC", kit.Analytes[12])

	_, ok = catalog.Find("saliva", 9)
	assert.False(t, ok)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown test type", `
kits:
  - test_type: blood
    kit_id: 1
    name: X
    analytes: [THC]
`},
		{"empty analytes", `
kits:
  - test_type: urine
    kit_id: 1
    name: X
    analytes: []
`},
		{"duplicate kit", `
kits:
  - test_type: urine
    kit_id: 1
    name: A
    analytes: [THC]
  - test_type: urine
    kit_id: 1
    name: B
    analytes: [COC]
`},
		{"malformed yaml", "kits: [}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCatalog(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestForTestTypePreservesCatalogOrder(t *testing.T) {
	catalog := &Catalog{Kits: []Profile{
		{TestType: "urine", KitID: 2, Analytes: []string{"A"}},
		{TestType: "saliva", KitID: 1, Analytes: []string{"B"}},
		{TestType: "urine", KitID: 1, Analytes: []string{"C"}},
	}}

	got := catalog.ForTestType("urine")
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].KitID)
	assert.Equal(t, 1, got[1].KitID)

	assert.Empty(t, catalog.ForTestType("hair"))
}
