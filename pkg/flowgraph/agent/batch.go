package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/template"
)

// Batch splits a list input into pages, one model call per page.
type Batch struct {
	// Var is the input variable holding the list or the document with it.
	Var string
	// Key selects the list inside a JSON object. Empty means the input is
	// the list itself.
	Key string
	// Size is the number of items per page. Values below 1 mean 1.
	Size int
	// Concurrency bounds parallel page calls. Values below 1 mean 1.
	Concurrency int
}

// runBatches renders and sends one prompt per page and merges the results.
func runBatches(ctx flowgraph.Context, spec Spec, expander *template.Expander, client llm.Client, vars map[string]any) (string, error) {
	items, err := batchItems(vars[spec.Batch.Var].(string), spec.Batch.Key)
	if err != nil || len(items) == 0 {
		// Nothing to page through; send the input as one call.
		ctx.Logger().Debug("batch input is not a non-empty list, sending one call",
			"var", spec.Batch.Var, "error", err)
		return invoke(ctx, ctx.Logger(), spec, expander, client, vars)
	}
	pages := paginate(items, max(spec.Batch.Size, 1))

	results := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(spec.Batch.Concurrency, 1))
	for i, page := range pages {
		g.Go(func() error {
			pageVars := make(map[string]any, len(vars))
			for k, v := range vars {
				pageVars[k] = v
			}
			pageVars[spec.Batch.Var] = page

			out, err := invoke(gctx, ctx.Logger(), spec, expander, client, pageVars)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	ctx.Logger().Debug("batched agent step complete", "pages", len(pages), "items", len(items))
	return mergePages(results), nil
}

// batchItems extracts the list to paginate from an input document.
func batchItems(doc, key string) ([]json.RawMessage, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, nil
	}
	raw := json.RawMessage(doc)
	if key != "" {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("expected a JSON object with %q: %w", key, err)
		}
		var ok bool
		if raw, ok = obj[key]; !ok {
			return nil, nil
		}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON list: %w", err)
	}
	return items, nil
}

// paginate splits items into pages encoded as JSON lists.
func paginate(items []json.RawMessage, size int) []json.RawMessage {
	pages := make([]json.RawMessage, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		data, _ := json.Marshal(items[start:end])
		pages = append(pages, data)
	}
	return pages
}

// mergePages combines page outputs in page order. When every page is a
// JSON object the objects are merged key by key, with booleans ANDed and a
// boolean missing from any page merged as false; otherwise the pages are
// returned as a JSON list, with non-JSON pages as strings.
func mergePages(pages []string) string {
	if len(pages) == 1 {
		return pages[0]
	}

	objects := make([]map[string]any, 0, len(pages))
	for _, p := range pages {
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(p))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil || obj == nil {
			return pageList(pages)
		}
		objects = append(objects, obj)
	}

	merged := make(map[string]any)
	for _, obj := range objects {
		for k, v := range obj {
			merged[k] = mergeValue(merged[k], v)
		}
	}
	// A verdict only holds when every page gave one; a failed page has none.
	for k, v := range merged {
		if _, ok := v.(bool); !ok {
			continue
		}
		for _, obj := range objects {
			if _, ok := obj[k]; !ok {
				merged[k] = false
				break
			}
		}
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return pageList(pages)
	}
	return string(data)
}

func mergeValue(prev, next any) any {
	if prev == nil {
		return next
	}
	switch p := prev.(type) {
	case []any:
		if n, ok := next.([]any); ok {
			return append(p, n...)
		}
	case string:
		if n, ok := next.(string); ok {
			if n == "" || n == p {
				return p
			}
			if p == "" {
				return n
			}
			return p + "\n" + n
		}
	case bool:
		if n, ok := next.(bool); ok {
			return p && n
		}
	}
	return next
}

func pageList(pages []string) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, p := range pages {
		if i > 0 {
			buf.WriteByte(',')
		}
		if json.Valid([]byte(p)) {
			buf.WriteString(p)
			continue
		}
		data, _ := json.Marshal(p)
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.String()
}
