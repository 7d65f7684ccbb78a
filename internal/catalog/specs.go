package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/foilscan/internal/model"
)

var (
	areaPattern       = regexp.MustCompile(`(\d{3,4})`)
	mastLengthPattern = regexp.MustCompile(`(?i)(\d{2,4})\s*(cm|mm)?`)
)

// seriesPatterns are checked in order. Full series names come before the
// short codes so that "SP" never matches inside "SPITFIRE".
var seriesPatterns = []struct {
	re     *regexp.Regexp
	series string
}{
	{regexp.MustCompile(`\bSPITFIRE\b`), "Spitfire"},
	{regexp.MustCompile(`\bFIREBALL\b`), "Fireball"},
	{regexp.MustCompile(`\bSURGE\b`), "Surge"},
	{regexp.MustCompile(`\bTEMPO\b`), "Tempo"},
	{regexp.MustCompile(`\bART\s?PRO\b`), "ARTPRO"},
	{regexp.MustCompile(`\bART\b`), "ART"},
	{regexp.MustCompile(`\bBSC\b`), "BSC"},
	{regexp.MustCompile(`\bHPS\b`), "HPS"},
	{regexp.MustCompile(`\bPNG\b`), "PNG"},
	{regexp.MustCompile(`\b(SP|SURF)\b`), "SP"},
}

var rearStyles = []string{"Progressive", "Skinny", "Speed", "Pump", "Freeride"}

// ExtractSpecs parses the specs encoded in a product title.
func ExtractSpecs(title, collection, productType string) model.ProductSpecs {
	specs := model.ProductSpecs{Name: title, ProductType: productType}
	upper := strings.ToUpper(title)

	switch collection {
	case FrontWings:
		specs.Area = area(title)
		specs.Series = series(upper)
	case RearWings:
		specs.Area = area(title)
		for _, style := range rearStyles {
			if strings.Contains(upper, strings.ToUpper(style)) {
				specs.Style = style
				break
			}
		}
	case Masts:
		specs.LengthCM = mastLength(title)
		specs.Material = mastMaterial(upper)
	}
	return specs
}

func area(title string) int {
	m := areaPattern.FindStringSubmatch(title)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1]) //nolint:errcheck // pattern guarantees digits
	return n
}

func series(upper string) string {
	for _, p := range seriesPatterns {
		if p.re.MatchString(upper) {
			return p.series
		}
	}
	return ""
}

func mastLength(title string) int {
	m := mastLengthPattern.FindStringSubmatch(title)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1]) //nolint:errcheck // pattern guarantees digits
	if n > 200 {
		n /= 10
	}
	return n
}

func mastMaterial(upper string) string {
	switch {
	case strings.Contains(upper, "CARBON"):
		switch {
		case strings.Contains(upper, "ULTRA") || strings.Contains(upper, "PRO"):
			return "Ultra High Modulus Carbon"
		case strings.Contains(upper, "HIGH MODULUS"):
			return "High Modulus Carbon"
		default:
			return "Carbon"
		}
	case strings.Contains(upper, "ALUMINIUM") || strings.Contains(upper, "ALUMINUM"):
		return "Aluminium"
	}
	return ""
}
