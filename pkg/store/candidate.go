package store

import "strings"

const ImageTypePDFImage = "pdf_image"

// SourceMeta describes where a retrieved passage comes from.
type SourceMeta struct {
	FileID    string `json:"file_id"`
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type"`
	ImageType string `json:"image_type,omitempty"`
	Position  int    `json:"position"`
}

// Candidate is a passage (or image) considered as grounding context.
// A candidate belongs to the pipeline run that produced it.
type Candidate struct {
	ID     string     `json:"id"`
	Text   string     `json:"text"`
	Score  float64    `json:"score"`
	Source SourceMeta `json:"source"`
}

// IsImage reports whether the candidate points at an image rather than text.
func (c Candidate) IsImage() bool {
	if c.Source.ImageType == ImageTypePDFImage {
		return true
	}
	return strings.HasPrefix(strings.ToLower(c.Source.FileType), "image/")
}

// PartitionCandidates splits candidates into text and image ones, keeping order.
func PartitionCandidates(cands []Candidate) (text, images []Candidate) {
	for _, c := range cands {
		if c.IsImage() {
			images = append(images, c)
		} else {
			text = append(text, c)
		}
	}
	return text, images
}
