package normalize

import "github.com/woozymasta/geolayers/internal/geo"

// DefaultPopupTitle is shown by the map when a layer has no title field.
const DefaultPopupTitle = "Feature Information"

// PopupTemplate is the display template for a layer's feature popups.
type PopupTemplate struct {
	Title     string         `json:"title" yaml:"title"`
	Content   []PopupContent `json:"content" yaml:"content"`
	OutFields []string       `json:"outFields" yaml:"outFields"`
}

// PopupContent is one block of popup content.
type PopupContent struct {
	Type       string      `json:"type" yaml:"type"`
	FieldInfos []FieldInfo `json:"fieldInfos" yaml:"fieldInfos"`
}

// FieldInfo controls how one attribute is listed in a popup.
type FieldInfo struct {
	FieldName string `json:"fieldName" yaml:"fieldName"`
	Label     string `json:"label" yaml:"label"`
	Visible   bool   `json:"visible" yaml:"visible"`
}

// BuildPopupTemplate lists every attribute of the first feature. It returns
// nil when there is nothing to show.
func BuildPopupTemplate(features []geo.Feature) *PopupTemplate {
	if len(features) == 0 || len(features[0].Properties) == 0 {
		return nil
	}

	keys := features[0].Properties.Keys()
	infos := make([]FieldInfo, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, FieldInfo{
			FieldName: key,
			Label:     FormatFieldLabel(key),
			Visible:   true,
		})
	}

	title := DefaultPopupTitle
	if field := FindTitleField(keys); field != "" {
		title = "{" + field + "}"
	}

	return &PopupTemplate{
		Title:     title,
		Content:   []PopupContent{{Type: "fields", FieldInfos: infos}},
		OutFields: keys,
	}
}
