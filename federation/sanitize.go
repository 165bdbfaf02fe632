package federation

import "github.com/microcosm-cc/bluemonday"

// ugcPolicy strips anything dangerous out of remote HTML bodies before
// they are materialized as local entities.
var ugcPolicy = bluemonday.UGCPolicy()

func SanitizeContent(html string) string {
	return ugcPolicy.Sanitize(html)
}
