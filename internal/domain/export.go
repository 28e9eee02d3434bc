package domain

type Resolution string

const (
	Res720p  Resolution = "720p"
	Res1080p Resolution = "1080p"
	Res4K    Resolution = "4k"
)

type AspectRatio string

const (
	Aspect16x9 AspectRatio = "16:9"
	Aspect9x16 AspectRatio = "9:16"
	Aspect1x1  AspectRatio = "1:1"
)

type ExportSettings struct {
	Resolution  Resolution  `json:"resolution" yaml:"resolution"`
	AspectRatio AspectRatio `json:"aspect_ratio" yaml:"aspect_ratio"`
	Quality     int         `json:"quality" yaml:"quality"`
	Format      string      `json:"format" yaml:"format"`
}

func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		Resolution:  Res1080p,
		AspectRatio: Aspect16x9,
		Quality:     80,
		Format:      "mp4",
	}
}

type ExportState struct {
	Settings  ExportSettings `json:"settings"`
	Exporting bool           `json:"exporting"`
	Progress  int            `json:"progress"`
	Completed string         `json:"completed,omitempty"`
	Err       string         `json:"error,omitempty"`
}
