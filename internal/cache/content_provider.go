package cache

// ContentProvider provides access to distribution-member contents for the
// similarity pass.
// old=true  -> read from the previous distribution root (Removed)
// old=false -> read from the current distribution root (Added)
// If not set (nil), similarity pass is skipped.

type ContentProvider interface {
	Read(path string, old bool) ([]byte, error)
}

var contentProvider ContentProvider

// SetContentProvider sets global provider for delta similarity pass.
func SetContentProvider(p ContentProvider) { contentProvider = p }

func getProvider() ContentProvider { return contentProvider }
