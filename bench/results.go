package bench

import (
	"io"

	"gopkg.in/yaml.v3"
)

type caseLog struct {
	Moves    string  `yaml:"moves"`
	Expected int     `yaml:"expected"`
	Got      int     `yaml:"got"`
	Correct  bool    `yaml:"correct"`
	Millis   float64 `yaml:"ms"`
	Nodes    uint64  `yaml:"nodes"`
}

type reportLog struct {
	Suite   string    `yaml:"suite"`
	Weak    bool      `yaml:"weak"`
	Correct int       `yaml:"correct"`
	Total   int       `yaml:"total"`
	MeanMs  float64   `yaml:"mean_ms"`
	StdMs   float64   `yaml:"std_ms"`
	Cases   []caseLog `yaml:"cases"`
}

// WriteYAML writes the report and every case result as a YAML document.
// Each document starts with a separator, so reports can be appended to one
// stream.
func (r *Report) WriteYAML(w io.Writer) error {
	out := reportLog{
		Suite:   r.Name,
		Weak:    r.Weak,
		Correct: r.Correct,
		Total:   len(r.Results),
		MeanMs:  r.MeanTime * 1000,
		StdMs:   r.StdTime * 1000,
	}
	for _, res := range r.Results {
		out.Cases = append(out.Cases, caseLog{
			Moves:    res.Case.Moves,
			Expected: res.Case.Score,
			Got:      res.Got,
			Correct:  res.Correct(r.Weak),
			Millis:   float64(res.Elapsed.Microseconds()) / 1000,
			Nodes:    res.Nodes,
		})
	}
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
