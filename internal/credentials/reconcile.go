package credentials

import "time"

// Reconciled is the single authoritative view built from the runtime and
// file credentials.
type Reconciled struct {
	AccessToken string
	Expiry      time.Time
	ResourceURL string
	Scope       string

	// RefreshCandidates are refresh tokens to try, in order, without
	// duplicates.
	RefreshCandidates []string
}

// HasExpiry reports whether the expiry is known.
func (r Reconciled) HasExpiry() bool {
	return !r.Expiry.IsZero()
}

// Reconcile merges the runtime view and the persisted credential. Either
// may be nil.
//
// The source with the later expiry wins; a source without an expiry ranks
// below any source with one, and on a tie the runtime view wins. Fields the
// winner lacks fall back to the runtime view, then the file. Refresh
// candidates are ordered winner, file, runtime.
//
// Reconcile is pure: the result depends only on its arguments.
func Reconcile(runtime, file *Credential) Reconciled {
	freshest := pickFreshest(runtime, file)
	if freshest == nil {
		return Reconciled{}
	}

	var out Reconciled
	out.AccessToken = firstString(
		func(c *Credential) string { return c.AccessToken },
		freshest, runtime, file,
	)
	out.ResourceURL = firstString(
		func(c *Credential) string { return c.ResourceURL },
		freshest, runtime, file,
	)
	out.Scope = firstString(
		func(c *Credential) string { return c.Scope },
		freshest, runtime, file,
	)
	for _, c := range []*Credential{freshest, runtime, file} {
		if c.HasExpiry() {
			out.Expiry = c.Expiry
			break
		}
	}

	out.RefreshCandidates = dedupe(refreshTokenOf(freshest), refreshTokenOf(file), refreshTokenOf(runtime))
	return out
}

// pickFreshest returns the present source with the greatest expiry.
// Runtime is considered first so it wins ties.
func pickFreshest(runtime, file *Credential) *Credential {
	var best *Credential
	for _, c := range []*Credential{runtime, file} {
		if c == nil {
			continue
		}
		if best == nil || c.Expiry.After(best.Expiry) {
			best = c
		}
	}
	return best
}

func firstString(field func(*Credential) string, sources ...*Credential) string {
	for _, c := range sources {
		if c == nil {
			continue
		}
		if v := field(c); v != "" {
			return v
		}
	}
	return ""
}

func refreshTokenOf(c *Credential) string {
	if c == nil {
		return ""
	}
	return c.RefreshToken
}

func dedupe(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
