package domain

type Clip struct {
	ID       string  `json:"id"`
	Locator  string  `json:"locator"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Name     string  `json:"name"`
	Selected bool    `json:"selected"`
}

// Duration is zero while End is still unknown.
func (c Clip) Duration() float64 {
	if c.End <= c.Start {
		return 0
	}
	return c.End - c.Start
}

type Panel string

const (
	PanelNone    Panel = ""
	PanelFilters Panel = "filters"
	PanelAudio   Panel = "audio"
	PanelText    Panel = "text"
	PanelSpeed   Panel = "speed"
	PanelCut     Panel = "cut"
	PanelSplit   Panel = "split"
	PanelCrop    Panel = "crop"
)

func (p Panel) Valid() bool {
	switch p {
	case PanelNone, PanelFilters, PanelAudio, PanelText, PanelSpeed, PanelCut, PanelSplit, PanelCrop:
		return true
	}
	return false
}

type SessionState struct {
	Clips      []Clip `json:"clips"`
	Selected   *Clip  `json:"selected,omitempty"`
	Processing bool   `json:"processing"`
	Progress   string `json:"progress"`
	Err        string `json:"error,omitempty"`
	Panel      Panel  `json:"panel,omitempty"`
}
