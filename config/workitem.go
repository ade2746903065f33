package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "sjsage522/newsworker/pkg/errors"
)

// Work item variable names
const (
	VarSearchPhrase   = "search_phrase"
	VarNewsCategory   = "news_category"
	VarNumberOfMonths = "number_of_months"
)

// WorkItem is one input item of a run; only its payload is used
type WorkItem struct {
	Payload map[string]interface{} `json:"payload"`
}

// Variable returns the payload value for name as a string
func (w *WorkItem) Variable(name string) (string, bool) {
	if w == nil || w.Payload == nil {
		return "", false
	}
	v, ok := w.Payload[name]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return fmt.Sprint(val), true
	}
}

// LoadWorkItem reads the first input work item from a JSON file holding
// either a list of items or a single item
func LoadWorkItem(path string) (*WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfiguration("failed to read work item "+path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []WorkItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, apperrors.NewConfiguration("invalid work item file "+path, err)
		}
		if len(items) == 0 {
			return nil, apperrors.NewConfiguration("work item file "+path+" has no items", nil)
		}
		return &items[0], nil
	}

	var item WorkItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, apperrors.NewConfiguration("invalid work item file "+path, err)
	}
	return &item, nil
}
