package tiepoint

import(
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// ParseFixedLocations reads `latitude,longitude` pairs (WGS84 decimal
// degrees), one per line. Lines that don't parse, or are out of range,
// are skipped. The points come back as X=lat, Y=lon.
func ParseFixedLocations(r io.Reader) ([]emath.Point2D, error) {
	pts := []emath.Point2D{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		if len(fields) != 2 {
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if !(lat >= -90 && lat <= 90 && lon >= -180 && lon <= 360) {
			continue
		}
		pts = append(pts, emath.Point2D{X: lat, Y: lon})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading locations: %v", err)
	}
	return pts, nil
}

func LoadFixedLocations(filename string) ([]emath.Point2D, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer f.Close()
	return ParseFixedLocations(f)
}
