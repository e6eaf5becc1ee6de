package twitter

import "errors"

// ErrAuthFailed marks a 401/403 from the gateway. It aborts the whole fetch
// with no retry; the account's key is bad, not the endpoint.
var ErrAuthFailed = errors.New("twitter: authentication failed")
