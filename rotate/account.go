package rotate

import (
	"bufio"
	"io"
	"strings"
)

// Account is an Instagram session account: a login and the cookie jar
// captured from an authenticated browser session.
type Account struct {
	Login   string
	Cookies map[string]string
}

// SessionID returns the sessionid cookie, the credential that actually
// authenticates API calls.
func (a Account) SessionID() string {
	return a.Cookies["sessionid"]
}

// ParseAccounts reads account lines in the form
//
//	login:password||name=value; name=value; ...
//
// Lines without the "||" separator are skipped, and so is any account whose
// cookies carry no sessionid: a session-less account can never authenticate,
// so it is never loaded at all.
//
// Accounts are returned as pointers so they can be rotated in a
// Pool[*Account] (cookie maps make the value type non-comparable).
func ParseAccounts(r io.Reader) ([]*Account, error) {
	var accounts []*Account
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.Contains(line, "||") {
			continue
		}

		creds, cookiesPart, _ := strings.Cut(line, "||")
		login := creds
		if l, _, ok := strings.Cut(creds, ":"); ok {
			login = l
		}

		cookies := make(map[string]string)
		for _, c := range strings.Split(cookiesPart, ";") {
			name, value, ok := strings.Cut(c, "=")
			if !ok {
				continue
			}
			cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}

		if cookies["sessionid"] == "" {
			continue
		}
		accounts = append(accounts, &Account{Login: login, Cookies: cookies})
	}
	return accounts, sc.Err()
}
