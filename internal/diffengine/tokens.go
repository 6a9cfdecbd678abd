package diffengine

// Recognized ignore-token vocabulary. IgnorePolicy never validates against
// this list — any string is accepted — but comparators only ever tag nodes
// with one of these, so it doubles as the documented default set.
const (
	TokenVersion             = "version"             // class-file major/minor version
	TokenPlatform            = "platform"             // JVM-target/platform-derived metadata
	TokenLines               = "lines"               // LineNumberTable entries
	TokenPool                = "pool"                 // literal constant-pool ordering/content
	TokenManifestSubsections = "manifest_subsections" // per-entry manifest sections
	TokenJarSignature        = "jar_signature"        // .SF/.RSA/.DSA/.EC members
	TokenTrailingWhitespace  = "trailing_whitespace"  // trailing-whitespace-only text diffs
)

// DefaultTokens lists the vocabulary above for callers building a UI of
// togglable ignore tokens; config.Default also uses it as the active
// ignore list when no config file is loaded.
var DefaultTokens = []string{
	TokenVersion,
	TokenPlatform,
	TokenLines,
	TokenPool,
	TokenManifestSubsections,
	TokenJarSignature,
	TokenTrailingWhitespace,
}
