package domain

// Quality sources reported on ResolvedQuality.
const (
	QualitySourceSystem = "system"
	QualitySourceCustom = "custom"
)

// ResolvedQuality is the quality that applies to an item or pet after the
// precedence rule has been applied.
type ResolvedQuality struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Rank   int     `json:"rank"`
	Color  *string `json:"color,omitempty"`
	Source string  `json:"source"`
}

// ResolveQuality applies the precedence rule: a user-defined quality, when
// present, replaces the system quality. It returns nil when neither is set.
func ResolveQuality(system *Quality, custom *QualityDef) *ResolvedQuality {
	if custom != nil {
		return &ResolvedQuality{
			Code:   custom.Code,
			Name:   custom.Name,
			Rank:   custom.Rank,
			Color:  custom.Color,
			Source: QualitySourceCustom,
		}
	}
	if system != nil && system.Valid() {
		return &ResolvedQuality{
			Code:   string(*system),
			Name:   string(*system),
			Rank:   system.Rank(),
			Source: QualitySourceSystem,
		}
	}
	return nil
}
