package bitbucket

import "context"

// DefaultMaxPages bounds how many pages ListAll follows when the caller
// does not set a limit. It protects against self-referencing next links and
// runaway result sets.
const DefaultMaxPages = 10

// ListAll fetches every page of a collection endpoint and returns the
// concatenated items in the order pages were served. The first request uses
// path and query; subsequent requests follow the envelope's next link
// verbatim (it already embeds all query parameters). Fetching stops when a
// page has no next link or maxPages is reached, whichever comes first.
//
// On any page failure the whole aggregation fails: no partial results are
// returned. There is no deduplication and no consistency guarantee if the
// remote collection mutates between page fetches.
func ListAll[T any](ctx context.Context, c *Client, path string, query map[string]string, maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []T
	target := path
	params := query
	for page := 0; page < maxPages; page++ {
		var envelope PaginatedResponse[T]
		if err := c.Get(ctx, target, params, &envelope); err != nil {
			return nil, err
		}

		all = append(all, envelope.Values...)

		if envelope.Next == "" {
			break
		}
		target = envelope.Next
		params = nil
	}

	return all, nil
}
