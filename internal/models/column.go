package models

const (
	// MinColumns and MaxColumns bound the column list of every board.
	MinColumns = 3
	MaxColumns = 5
)

type ColumnConfig struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// DefaultColumns is the template returned for programs that never
// saved a configuration of their own.
func DefaultColumns() []ColumnConfig {
	return []ColumnConfig{
		{ID: "todo", Title: "To Do"},
		{ID: "in_progress", Title: "In Progress"},
		{ID: "done", Title: "Done"},
	}
}
