package imagetools

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/ecomap/pkg/errors"
)

// Sample map geometry.
const (
	SampleWidth   = 1400
	SampleHeight  = 900
	SampleQuality = 85
	SampleTitle   = "School Ecological Map (sample)"
)

// DefaultSamplePath is where the sample map is written below a data root.
const DefaultSamplePath = "map/school-map.jpg"

// SampleMap draws a placeholder school map to path for trying the viewer
// without a real survey: a border, a title, a tree and a building. The
// format follows the file extension, JPEG when unknown.
func SampleMap(path string) error {
	dc := gg.NewContext(SampleWidth, SampleHeight)
	dc.SetRGB255(245, 250, 240)
	dc.Clear()

	dc.SetRGB255(200, 200, 200)
	dc.SetLineWidth(3)
	dc.DrawRectangle(40, 40, SampleWidth-80, SampleHeight-80)
	dc.Stroke()

	dc.SetRGB255(20, 80, 20)
	dc.DrawStringAnchored(SampleTitle, 60, 60, 0, 1)

	// tree
	dc.SetRGB255(34, 139, 34)
	dc.DrawCircle(230, 230, 30)
	dc.Fill()

	// building
	dc.SetRGB255(180, 120, 80)
	dc.DrawRectangle(400, 300, 120, 120)
	dc.Fill()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(path))
	}
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.JPEG
	}
	return writeAtomic(path, dc.Image(), format, imaging.JPEGQuality(SampleQuality))
}
