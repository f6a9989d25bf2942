package cache

// Keyer derives cache keys.
type Keyer interface {
	// ModulesKey names the module selection of one workspace.
	ModulesKey(workspace string) string

	// ExportKey names an exported artifact of the graph with the given hash.
	ExportKey(graphHash string, opts ExportKeyOpts) string
}

// ExportKeyOpts are the inputs besides the graph that change an export.
type ExportKeyOpts struct {
	Format      string `json:"format"`
	Orientation string `json:"orientation"`
	Detailed    bool   `json:"detailed,omitempty"`
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() *DefaultKeyer { return &DefaultKeyer{} }

// ModulesKey returns "modules:<workspace>". The workspace is used verbatim
// so keys stay readable in redis-cli.
func (DefaultKeyer) ModulesKey(workspace string) string {
	return "modules:" + workspace
}

// ExportKey hashes the graph hash together with the options.
func (DefaultKeyer) ExportKey(graphHash string, opts ExportKeyOpts) string {
	return hashKey("export", graphHash, opts)
}

// ScopedKeyer prefixes every key of an inner Keyer, so several tenants can
// share one backend:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "dagscope:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) *ScopedKeyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ModulesKey returns the prefixed modules key.
func (k *ScopedKeyer) ModulesKey(workspace string) string {
	return k.prefix + k.inner.ModulesKey(workspace)
}

// ExportKey returns the prefixed export key.
func (k *ScopedKeyer) ExportKey(graphHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(graphHash, opts)
}

var (
	_ Keyer = DefaultKeyer{}
	_ Keyer = (*ScopedKeyer)(nil)
)
