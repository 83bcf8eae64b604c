package coreg

import(
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

var gcpHeader = []string{"id", "method", "in_x", "in_y", "ref_x", "ref_y", "dx_px", "dy_px", "confidence", "good"}

func ff(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteGCPs writes one CSV row per result: the input and reference map
// coords, and the displacement in pixels of size `gsd`.
func WriteGCPs(w io.Writer, results []tiepoint.Result, gsd emath.Point2D) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(gcpHeader); err != nil {
		return err
	}
	for i, r := range results {
		d := r.Displacement(gsd)
		row := []string{
			strconv.Itoa(i),
			r.Chip.Method.String(),
			ff(r.Chip.Center.X), ff(r.Chip.Center.Y),
			ff(r.Matched.X), ff(r.Matched.Y),
			ff(d.X), ff(d.Y),
			ff(r.Confidence),
			strconv.FormatBool(r.Good),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteGCPFile(filename string, results []tiepoint.Result, gsd emath.Point2D) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	if err := WriteGCPs(f, results, gsd); err != nil {
		f.Close()
		return fmt.Errorf("write '%s': %v", filename, err)
	}
	return f.Close()
}

func (r Report)AsYaml() (string, error) {
	b, err := yaml.Marshal(r)
	return string(b), err
}

func WriteReportFile(filename string, r Report) error {
	s, err := r.AsYaml()
	if err != nil {
		return fmt.Errorf("marshal report: %v", err)
	}
	if err := ioutil.WriteFile(filename, []byte(s), 0644); err != nil {
		return fmt.Errorf("write '%s': %v", filename, err)
	}
	return nil
}
