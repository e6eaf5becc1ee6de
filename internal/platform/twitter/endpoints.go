package twitter

import "net/url"

// timelineEndpoints are the candidate route names for the user timeline,
// tried in order. Gateway deployments renamed the route more than once and
// older hosts still serve the previous names.
var timelineEndpoints = []string{
	"timeline.php",
	"user_timeline.php",
	"timeline",
}

func timelineURL(host, endpoint string, params url.Values) string {
	return "https://" + host + "/" + endpoint + "?" + params.Encode()
}
