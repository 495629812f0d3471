package fingerprint

import "io"

// normalizer streams source bytes into a digest with line and block
// comments stripped and runs of whitespace collapsed to a single space.
// String literals pass through verbatim. The state machine is fed byte by
// byte so it is correct across chunk boundaries.
//
// The normalized form feeds the similarity fingerprint only. It is an
// approximation of the source's token stream, never used for cache keys or
// invalidation decisions.
type normalizer struct {
	out io.Writer

	state        normState
	quote        byte
	escaped      bool
	pendingSpace bool
	emitted      bool
}

type normState int

const (
	stateCode normState = iota
	stateSlash
	stateLineComment
	stateBlockComment
	stateBlockStar
	stateString
)

func newNormalizer(out io.Writer) *normalizer {
	return &normalizer{out: out}
}

// Write feeds a chunk into the state machine. Digest writes never fail.
func (n *normalizer) Write(p []byte) {
	for _, b := range p {
		n.feed(b)
	}
}

//nolint:cyclop // One case per state transition
func (n *normalizer) feed(b byte) {
	switch n.state {
	case stateCode:
		switch {
		case b == '/':
			n.state = stateSlash
		case b == '"' || b == '\'' || b == '`':
			n.quote = b
			n.state = stateString
			n.emit(b)
		case isSpace(b):
			n.pendingSpace = true
		default:
			n.emit(b)
		}
	case stateSlash:
		switch b {
		case '/':
			n.state = stateLineComment
		case '*':
			n.state = stateBlockComment
		default:
			// Not a comment opener, the slash was real.
			n.emit('/')
			n.state = stateCode
			n.feed(b)
		}
	case stateLineComment:
		if b == '\n' {
			n.pendingSpace = true
			n.state = stateCode
		}
	case stateBlockComment:
		if b == '*' {
			n.state = stateBlockStar
		}
	case stateBlockStar:
		switch b {
		case '/':
			n.pendingSpace = true
			n.state = stateCode
		case '*':
			// Stay, the next byte may close the comment.
		default:
			n.state = stateBlockComment
		}
	case stateString:
		n.emit(b)
		switch {
		case n.escaped:
			n.escaped = false
		case b == '\\':
			n.escaped = true
		case b == n.quote:
			n.state = stateCode
		}
	}
}

func (n *normalizer) emit(b byte) {
	if n.pendingSpace && n.emitted {
		_, _ = n.out.Write([]byte{' '})
	}
	n.pendingSpace = false
	n.emitted = true
	_, _ = n.out.Write([]byte{b})
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
