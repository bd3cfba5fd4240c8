package core

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// QueryTree evaluates a JSONPath expression such as
// "$..[?(@.level > 4)].title" against the document as it is stored on disk.
func QueryTree(tree *models.TopicTree, selector string) ([]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", selector, err)
	}

	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encoding topic tree: %w", err)
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decoding topic tree: %w", err)
	}
	return x.Get(doc), nil
}

// QueryStore runs QueryTree against the current tree of store.
func QueryStore(store TreeStore, selector string) ([]any, error) {
	var out []any
	err := store.View(func(tree *models.TopicTree) error {
		var qerr error
		out, qerr = QueryTree(tree, selector)
		return qerr
	})
	return out, err
}
