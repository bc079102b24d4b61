package docstore

import (
	"context"
	"fmt"
	"slices"
)

// DefaultPageSize is the page size ListAll asks for
const DefaultPageSize = 100

// ListAll pages through List with limit and offset queries and returns every
// matching document. Hosted stores may return fewer documents than asked for,
// so paging only stops on a page that adds nothing new.
func ListAll(ctx context.Context, store Store, collection string, pageSize int, queries ...Query) ([]Document, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	for _, q := range queries {
		if q.Method == MethodLimit || q.Method == MethodOffset {
			return nil, fmt.Errorf("%w: ListAll sets its own %s", ErrInvalidQuery, q.Method)
		}
	}

	var all []Document
	seen := make(map[string]struct{})
	for offset := 0; ; {
		page, err := store.List(ctx, collection, append(slices.Clone(queries), Limit(pageSize), Offset(offset))...)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, doc := range page {
			if id := doc.ID(); id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			all = append(all, doc)
			added++
		}
		if added == 0 {
			return all, nil
		}
		offset += len(page)
	}
}
