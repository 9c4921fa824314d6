package coordinator

import (
	"bytes"
	"fmt"
	"net"
	"strconv"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const (
	clientProtocol = "Push Fight 0 client"
	serverProtocol = "Push Fight 0 server"
)

// Client is a connection to the coordinator, used by the automatic-
// mode worker's fetch/solve/report cycle.
type Client struct {
	conn    net.Conn
	solver  string
	user    string
	machine string
}

// Dial connects to addr and performs the protocol handshake.
func Dial(addr, solver, user, machine string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "coordinator: dial")
	}
	c := &Client{conn: conn, solver: solver, user: user, machine: machine}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) handshake() error {
	req := NewDict().
		Set("protocol", clientProtocol).
		Set("solver", c.solver).
		Set("user", c.user).
		Set("machine", c.machine)
	resp, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if errMsg, ok := resp.Get("error"); ok {
		return errors.Errorf("coordinator: handshake rejected: %s", errMsg)
	}
	if got, _ := resp.Get("protocol"); got != serverProtocol {
		return errors.Errorf("coordinator: unexpected server protocol %q", got)
	}
	return nil
}

func (c *Client) roundTrip(req *Dict) (*Dict, error) {
	if err := WriteMessage(c.conn, req); err != nil {
		return nil, errors.Wrap(err, "coordinator: sending request")
	}
	resp, err := ReadMessage(c.conn)
	if err != nil {
		return nil, errors.Wrap(err, "coordinator: reading response")
	}
	return resp, nil
}

func (c *Client) call(method string, args *Dict) (*Dict, error) {
	args.Set("method", method)
	resp, err := c.roundTrip(args)
	if err != nil {
		return nil, err
	}
	if errMsg, ok := resp.Get("error"); ok {
		return nil, errors.Errorf("coordinator: %s: %s", method, errMsg)
	}
	return resp, nil
}

// GetCurrentPhase asks the coordinator which phase is currently being
// computed.
func (c *Client) GetCurrentPhase() (int, error) {
	resp, err := c.call("GetCurrentPhase", NewDict())
	if err != nil {
		return 0, err
	}
	return getInt(resp, "phase")
}

// GetChunks asks the coordinator for the set of chunk indices it wants
// this client to work on for phaseNum.
func (c *Client) GetChunks(phaseNum int) ([]int64, error) {
	resp, err := c.call("GetChunks", NewDict().Set("phase", strconv.Itoa(phaseNum)))
	if err != nil {
		return nil, err
	}
	raw, ok := resp.Get("chunks")
	if !ok {
		return nil, nil
	}
	var chunks []int64
	for _, field := range splitCSV(raw) {
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "coordinator: parsing chunk list %q", raw)
		}
		chunks = append(chunks, n)
	}
	return chunks, nil
}

// ReportChunkComplete tells the coordinator that chunk c of phaseNum
// has been computed, with the uncompressed byte size and SHA-256
// digest of the result, matching the server's consistency check.
func (c *Client) ReportChunkComplete(phaseNum int, chunkIdx int64, byteSize int64, sha256Hex string) error {
	_, err := c.call("ReportChunkComplete", NewDict().
		Set("phase", strconv.Itoa(phaseNum)).
		Set("chunk", strconv.FormatInt(chunkIdx, 10)).
		Set("bytesize", strconv.FormatInt(byteSize, 10)).
		Set("sha256sum", sha256Hex))
	return err
}

// UploadChunk sends the zlib-compressed (DEFLATE, level 9, zlib
// header) result bytes for chunk c of phaseNum.
func (c *Client) UploadChunk(phaseNum int, chunkIdx int64, data []byte) error {
	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
	if err != nil {
		return errors.Wrap(err, "coordinator: creating zlib writer")
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return errors.Wrap(err, "coordinator: compressing chunk")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "coordinator: finalizing zlib stream")
	}
	_, err = c.call("UploadChunk", NewDict().
		Set("phase", strconv.Itoa(phaseNum)).
		Set("chunk", strconv.FormatInt(chunkIdx, 10)).
		Set("data", compressed.String()))
	return err
}

func getInt(d *Dict, key string) (int, error) {
	s, ok := d.Get(key)
	if !ok {
		return 0, fmt.Errorf("coordinator: response missing %q", key)
	}
	return strconv.Atoi(s)
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
