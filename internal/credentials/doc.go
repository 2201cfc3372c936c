// Package credentials holds the OAuth credential entity and the two places it
// lives: the in-memory Session owned by the running process and the JSON
// record persisted at ~/.qwen/oauth_creds.json.
//
// The persisted record is shared with other Qwen tooling:
//
//	{
//	  "access_token": "...",
//	  "token_type": "Bearer",
//	  "refresh_token": "...",
//	  "resource_url": "portal.qwen.ai",
//	  "expiry_date": 1735689600000,
//	  "scope": "openid profile email model.completion"
//	}
//
// Store never caches: other processes may rewrite the file at any time and
// the last writer wins. Reconcile merges the two views into one, and Watcher
// reports external rewrites so cached tokens can be dropped early.
package credentials
