package telnet

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"time"
)

// Telnet command bytes (RFC 854) and the options this server negotiates.
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	GA   byte = 249
	NOP  byte = 241
	SE   byte = 240

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// MaxLineLength caps a single input line; further bytes before the line
// terminator are discarded.
const MaxLineLength = 512

const (
	backspace = 0x08
	del       = 0x7f
)

// decodeState is where a decoder stands inside a command sequence.
type decodeState int

const (
	inData decodeState = iota
	afterIAC
	inOption
	inSub
	inSubIAC
)

// decoder separates data bytes from Telnet command sequences, one byte at a
// time, so sequences split across reads are handled.
type decoder struct {
	state decodeState
}

// feed consumes b and reports whether it is a data byte.
// An escaped IAC (IAC IAC) yields one data byte 0xFF.
func (d *decoder) feed(b byte) bool {
	switch d.state {
	case afterIAC:
		switch b {
		case IAC:
			d.state = inData
			return true
		case WILL, WONT, DO, DONT:
			d.state = inOption
		case SB:
			d.state = inSub
		default:
			d.state = inData
		}
	case inOption:
		d.state = inData
	case inSub:
		if b == IAC {
			d.state = inSubIAC
		}
	case inSubIAC:
		if b == SE {
			d.state = inData
		} else {
			d.state = inSub
		}
	default:
		if b == IAC {
			d.state = afterIAC
			return false
		}
		return true
	}
	return false
}

// Conn is a line-oriented Telnet connection. Reads strip protocol commands
// and apply backspace editing; writes are serialised and escape IAC bytes.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	dec    decoder
	// afterCR is set when the last line ended on CR, so a following LF or
	// NUL belongs to that terminator.
	afterCR bool

	mu sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps raw with Telnet handling. Zero timeouts disable deadlines.
//
// Precondition: raw must be an open network connection.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate offers to suppress go-ahead so prompts and animation frames are
// shown without waiting for a GA.
func (c *Conn) Negotiate() error {
	return c.writeRaw([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next line of input without its terminator.
//
// CR, LF, CR LF and CR NUL all end a line. Backspace and DEL remove the
// previous character. Other control bytes, the escaped 0xFF and bytes beyond
// MaxLineLength are dropped.
//
// Postcondition: On error the partial line read so far is returned with it.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line []byte
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return string(line), err
		}
		if !c.dec.feed(b) {
			continue
		}
		if c.afterCR {
			c.afterCR = false
			if b == '\n' || b == 0 {
				continue
			}
		}

		switch {
		case b == '\n':
			return string(line), nil
		case b == '\r':
			c.afterCR = true
			return string(line), nil
		case b == backspace || b == del:
			if len(line) > 0 {
				line = line[:len(line)-1]
			}
		case b < 32 && b != '\t', b == IAC:
		case len(line) < MaxLineLength:
			line = append(line, b)
		}
	}
}

// WriteLine sends text followed by CRLF.
func (c *Conn) WriteLine(text string) error {
	return c.Write([]byte(text + "\r\n"))
}

// WritePrompt sends a prompt with no line ending.
func (c *Conn) WritePrompt(prompt string) error {
	return c.Write([]byte(prompt))
}

// Write sends data as-is apart from doubling any 0xFF byte.
//
// Postcondition: Concurrent writes never interleave.
func (c *Conn) Write(data []byte) error {
	if bytes.IndexByte(data, IAC) >= 0 {
		data = bytes.ReplaceAll(data, []byte{IAC}, []byte{IAC, IAC})
	}
	return c.writeRaw(data)
}

func (c *Conn) writeRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the client's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// FilterIAC returns input with every Telnet command sequence removed.
// Escaped IAC pairs become a single 0xFF; a trailing incomplete sequence is
// dropped.
func FilterIAC(input []byte) []byte {
	var d decoder
	out := make([]byte, 0, len(input))
	for _, b := range input {
		if d.feed(b) {
			out = append(out, b)
		}
	}
	return out
}
