package transport

import (
	"encoding/base64"
	"fmt"
)

type authScheme int

const (
	authNone authScheme = iota
	authBearer
	authBasic
	authClientKey
)

// Auth selects exactly one Authorization scheme for every outgoing call.
// The zero value carries no credentials and is rejected by the client.
type Auth struct {
	scheme authScheme
	token  string
	user   string
	pass   string
	key    string
}

func Bearer(token string) Auth {
	return Auth{scheme: authBearer, token: token}
}

func Basic(user, pass string) Auth {
	return Auth{scheme: authBasic, user: user, pass: pass}
}

func ClientKey(key string) Auth {
	return Auth{scheme: authClientKey, key: key}
}

func (a Auth) IsZero() bool {
	return a.scheme == authNone
}

// header renders the Authorization header value for the selected scheme.
func (a Auth) header() (string, error) {
	switch a.scheme {
	case authBearer:
		return "Bearer " + a.token, nil
	case authBasic:
		cred := base64.StdEncoding.EncodeToString([]byte(a.user + ":" + a.pass))
		return "Basic " + cred, nil
	case authClientKey:
		return "Client-Key " + a.key, nil
	default:
		return "", fmt.Errorf("no auth credentials configured")
	}
}
