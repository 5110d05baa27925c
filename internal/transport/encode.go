package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"time"
)

const authVersion = "2"

// Sign returns base64(HMAC-SHA256(action + keyID + timestamp, accessKey)).
func Sign(actionName, keyID, timestamp, accessKey string) string {
	mac := hmac.New(sha256.New, []byte(accessKey))
	mac.Write([]byte(actionName + keyID + timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Encode builds the signed query for req at time ts.
// Positional argument i is sent under the action's i-th input name; nil arguments are skipped.
func Encode(req *Request, ts time.Time) (url.Values, error) {
	inputs := req.Action.Inputs
	if len(req.Arguments) > len(inputs) {
		return nil, fmt.Errorf("%s takes at most %d arguments, got %d", req.Action.Name, len(inputs), len(req.Arguments))
	}

	stamp := ts.UTC().Format(time.RFC3339)
	q := url.Values{}
	q.Set("Action", req.Action.Remote)
	q.Set("Version", req.Version)
	q.Set("KeyID", req.Credentials.KeyID)
	q.Set("Timestamp", stamp)
	q.Set("AuthVersion", authVersion)
	q.Set("Signature", Sign(req.Action.Remote, req.Credentials.KeyID, stamp, req.Credentials.AccessKey))

	for i, arg := range req.Arguments {
		if arg == nil {
			continue
		}
		encodeValue(q, inputs[i].Name, arg)
	}
	return q, nil
}

func encodeValue(q url.Values, name string, v any) {
	switch val := v.(type) {
	case string:
		q.Set(name, val)
	case bool:
		if val {
			q.Set(name, "1")
		} else {
			q.Set(name, "0")
		}
	case time.Time:
		q.Set(name, val.UTC().Format(time.RFC3339))
	case map[string]string:
		for _, k := range sortedKeys(val) {
			q.Set(name+"["+k+"]", val[k])
		}
	case map[string]any:
		for _, k := range sortedKeys(val) {
			q.Set(name+"["+k+"]", fmt.Sprint(val[k]))
		}
	case fmt.Stringer:
		q.Set(name, val.String())
	default:
		q.Set(name, fmt.Sprint(val))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
