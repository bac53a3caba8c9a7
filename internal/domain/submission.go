// Package domain holds the submission schema, job records and shared error
// types of the gateway.
package domain

const (
	MaxArtistLen   = 200
	MaxTitleLen    = 300
	MaxDescription = 2000
	MaxTags        = 25
	MaxTagLength   = 50

	MinDimension        = 128
	MaxDimension        = 4096
	DefaultMaxDimension = 2048
)

const (
	WatermarkVisible   = "visible"
	WatermarkInvisible = "invisible"
	WatermarkBoth      = "both"

	DefaultWatermarkStrategy = WatermarkInvisible
)

var AllowedProcessors = map[string]bool{
	"watermark":   true,
	"fingerprint": true,
	"metadata":    true,
	"cloak":       true,
}

var AllowedWatermarkStrategies = map[string]bool{
	WatermarkVisible:   true,
	WatermarkInvisible: true,
	WatermarkBoth:      true,
}

// SourceKind names where the artwork bytes come from. An embedded file
// outranks a URL, which outranks a server-side path.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceURL  SourceKind = "url"
	SourcePath SourceKind = "path"
)

// Submission is a validated, fully defaulted protection request.
type Submission struct {
	ArtistName        string
	ArtworkTitle      string
	Description       string
	Tags              []string
	Processors        []string
	WatermarkStrategy string
	MaxDimension      int
	PreserveMetadata  bool
	SourceKind        SourceKind
	ImageURL          string
	ImagePath         string
	NotifyURL         string
	ExtraMetadata     map[string]any
}

// ProcessorConfig is the slice of a submission that the processor acts on,
// echoed back to clients while the job is in flight.
type ProcessorConfig struct {
	Processors        []string `json:"processors"`
	WatermarkStrategy string   `json:"watermark_strategy"`
	MaxDimension      int      `json:"max_dimension"`
	PreserveMetadata  bool     `json:"preserve_metadata"`
}

func (s Submission) ProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		Processors:        s.Processors,
		WatermarkStrategy: s.WatermarkStrategy,
		MaxDimension:      s.MaxDimension,
		PreserveMetadata:  s.PreserveMetadata,
	}
}

// DuplicateMatch describes an existing artifact that blocked a submission.
type DuplicateMatch struct {
	ArtifactID string   `json:"artifact_id"`
	Title      string   `json:"title,omitempty"`
	Artist     string   `json:"artist,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Checksum   string   `json:"checksum,omitempty"`
	MatchedBy  string   `json:"matched_by"`
}
