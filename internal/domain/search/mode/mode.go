package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid combines semantic and keyword signals.
	Hybrid  Mode = "hybrid"
	Vector  Mode = "vector"
	Keyword Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Vector || m == Keyword
}

// UsesVector reports whether the mode runs the semantic leg.
func (m Mode) UsesVector() bool { return m == Hybrid || m == Vector }

// UsesKeyword reports whether the mode runs the lexical leg.
func (m Mode) UsesKeyword() bool { return m == Hybrid || m == Keyword }
