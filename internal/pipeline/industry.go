package pipeline

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed industries.yaml
var industriesYAML []byte

type industryBucket struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	re       *regexp.Regexp
}

var industryBuckets = mustLoadIndustries(industriesYAML)

func loadIndustries(data []byte) ([]industryBucket, error) {
	var doc struct {
		Industries []industryBucket `yaml:"industries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse industries")
	}
	if len(doc.Industries) == 0 {
		return nil, eris.New("pipeline: industries table is empty")
	}
	for i := range doc.Industries {
		b := &doc.Industries[i]
		if b.Name == "" || len(b.Keywords) == 0 {
			return nil, eris.Errorf("pipeline: industry bucket %d needs a name and keywords", i)
		}
		quoted := make([]string, len(b.Keywords))
		for j, k := range b.Keywords {
			quoted[j] = regexp.QuoteMeta(strings.ToLower(k))
		}
		b.re = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return doc.Industries, nil
}

func mustLoadIndustries(data []byte) []industryBucket {
	b, err := loadIndustries(data)
	if err != nil {
		panic(err)
	}
	return b
}

// extractIndustry returns the first bucket whose keywords appear in text.
func extractIndustry(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, b := range industryBuckets {
		if b.re.MatchString(lower) {
			return b.Name, true
		}
	}
	return "", false
}
