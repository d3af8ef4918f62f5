package model

import "time"

// InspectionRow mirrors t_inspection (spec.md §6 database contract).
type InspectionRow struct {
	InspectionID int64     `json:"inspection_id"`
	ProductNo    string    `json:"product_no"`
	Serial       string    `json:"serial"`
	InspectionDT time.Time `json:"inspection_dt"`
}

// InspectionImage mirrors t_inspection_images.
type InspectionImage struct {
	ID               int64     `json:"id"`
	InspectionID     int64     `json:"inspection_id"`
	ImageNo          int       `json:"image_no"`
	ImagePath        string    `json:"image_path"`
	ImageType        string    `json:"image_type"`
	CaptureTimestamp time.Time `json:"capture_timestamp"`
	ImageMetadata    []byte    `json:"image_metadata_base64"` // base64'd in JSON per spec.md §4.6
}

// PresentationGroup is one of A..E (spec.md §6 t_inspection_presentation).
type PresentationGroup string

const (
	GroupA PresentationGroup = "A"
	GroupB PresentationGroup = "B"
	GroupC PresentationGroup = "C"
	GroupD PresentationGroup = "D"
	GroupE PresentationGroup = "E"
)

// InspectionPresentation mirrors t_inspection_presentation.
type InspectionPresentation struct {
	ID           int64             `json:"id"`
	InspectionID int64             `json:"inspection_id"`
	Group        PresentationGroup `json:"group_name"`
	ImagePath    string            `json:"image_path"`
}

// InspectionUpdate is the payload the watcher broadcasts to websocket
// subscribers of a product_no: the latest inspection row plus its images
// and presentation set (SPEC_FULL.md §5 supplemented feature).
type InspectionUpdate struct {
	Inspection    InspectionRow             `json:"inspection"`
	Images        []InspectionImage         `json:"images"`
	Presentations []InspectionPresentation  `json:"presentations"`
}
