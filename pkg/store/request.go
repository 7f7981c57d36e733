package store

const (
	DefaultRetrieveCount = 6
	DefaultRerankCount   = 3
	DefaultFusionCount   = 3
)

// TurnRequest is the decoded form of one inbound chat frame.
type TurnRequest struct {
	Session   SessionKey
	Query     string
	ImageURLs []string
	MultiTurn bool
	ModelType string
	ModelName string

	RetrieveCount int
	RerankCount   int
	FusionCount   int
}

// UserTurn builds the history entry recorded when the request arrives.
func (r TurnRequest) UserTurn() Turn {
	return Turn{
		Role:      RoleUser,
		Content:   TurnContent{Text: r.Query, Images: r.ImageURLs},
		ModelName: r.ModelName,
	}
}
