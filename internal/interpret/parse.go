package interpret

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoArray is returned when the model response contains no bracketed
// numeric array. The endpoint guarantees nothing beyond the convention of
// embedding one somewhere in free text.
var ErrNoArray = errors.New("no numeric array found in model response")

var arrayPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)

// ExtractArray scrapes the first bracketed numeric array literal out of
// unstructured response text. This is the single seam isolating the
// text-scraping so the inference provider can be swapped without touching
// callers.
func ExtractArray(text string) ([]int, error) {
	match := arrayPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, ErrNoArray
	}

	inner := strings.TrimSpace(match[1])
	if inner == "" {
		return nil, fmt.Errorf("%w: empty array", ErrNoArray)
	}

	fields := strings.Split(inner, ",")
	values := make([]int, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrNoArray, strings.TrimSpace(field))
		}
		values = append(values, n)
	}
	return values, nil
}
