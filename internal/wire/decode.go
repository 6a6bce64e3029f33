package wire

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Decoder reads messages from a byte stream. The only read primitive is
// "exactly n bytes, blocking until available"; the decoder never peeks, so
// on a stream it consumes precisely one message per call.
//
// Errors are sticky: after the first failure every further read is a no-op
// and the failure is returned. A failed Decoder must be discarded together
// with its stream, because an unknown discriminant leaves the stream
// position mid-message.
type Decoder struct {
	r   io.Reader
	err error
	buf [4]byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

func (d *Decoder) read(n int) []byte {
	if d.err != nil {
		return nil
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		d.err = ErrUnexpectedEnd
		return nil
	}
	return d.buf[:n]
}

func (d *Decoder) u8() uint8 {
	b := d.read(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) u16() uint16 {
	b := d.read(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (d *Decoder) u32() uint32 {
	b := d.read(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (d *Decoder) string() string {
	n := int(d.u8())
	if d.err != nil {
		return ""
	}
	s := make([]byte, n)
	if _, err := io.ReadFull(d.r, s); err != nil {
		d.err = ErrUnexpectedEnd
		return ""
	}
	return string(s)
}

func (d *Decoder) position() Position {
	x := d.u16()
	y := d.u16()
	return Position{X: x, Y: y}
}

func (d *Decoder) player() Player {
	name := d.string()
	addr := d.string()
	return Player{Name: name, Address: addr}
}

func (d *Decoder) fail(sum string, tag uint8) {
	if d.err == nil {
		d.err = &UnknownDiscriminantError{Sum: sum, Value: tag}
	}
}

// ClientToServer decodes one client → server message.
func (d *Decoder) ClientToServer() (ClientToServer, error) {
	var msg ClientToServer
	switch tag := d.u8(); {
	case d.err != nil:
	case tag == tagJoin:
		msg = Join{Name: d.string()}
	case tag == tagPlaceBomb:
		msg = PlaceBomb{}
	case tag == tagPlaceBlock:
		msg = PlaceBlock{}
	case tag == tagMove:
		msg = Move{Direction: d.direction()}
	default:
		d.fail("ClientToServer", tag)
	}
	if d.err != nil {
		return nil, d.err
	}
	return msg, nil
}

// ServerToClient decodes one server → client message.
func (d *Decoder) ServerToClient() (ServerToClient, error) {
	var msg ServerToClient
	switch tag := d.u8(); {
	case d.err != nil:
	case tag == tagHello:
		msg = Hello{
			ServerName:      d.string(),
			PlayersCount:    d.u8(),
			SizeX:           d.u16(),
			SizeY:           d.u16(),
			GameLength:      d.u16(),
			ExplosionRadius: d.u16(),
			BombTimer:       d.u16(),
		}
	case tag == tagAcceptedPlayer:
		msg = AcceptedPlayer{ID: PlayerID(d.u8()), Player: d.player()}
	case tag == tagGameStarted:
		msg = GameStarted{Players: d.playerMap()}
	case tag == tagTurn:
		turn := d.u16()
		msg = Turn{Turn: turn, Events: d.events()}
	case tag == tagGameEnded:
		msg = GameEnded{Scores: d.scoreMap()}
	default:
		d.fail("ServerToClient", tag)
	}
	if d.err != nil {
		return nil, d.err
	}
	return msg, nil
}

// ClientToInterface decodes one snapshot message.
func (d *Decoder) ClientToInterface() (ClientToInterface, error) {
	var msg ClientToInterface
	switch tag := d.u8(); {
	case d.err != nil:
	case tag == tagLobby:
		msg = Lobby{
			ServerName:      d.string(),
			PlayersCount:    d.u8(),
			SizeX:           d.u16(),
			SizeY:           d.u16(),
			GameLength:      d.u16(),
			ExplosionRadius: d.u16(),
			BombTimer:       d.u16(),
			Players:         d.playerMap(),
		}
	case tag == tagGame:
		msg = Game{
			ServerName:      d.string(),
			SizeX:           d.u16(),
			SizeY:           d.u16(),
			GameLength:      d.u16(),
			Turn:            d.u16(),
			Players:         d.playerMap(),
			PlayerPositions: d.positionMap(),
			Blocks:          d.positions(),
			Bombs:           d.bombs(),
			Explosions:      d.positions(),
			Scores:          d.scoreMap(),
		}
	default:
		d.fail("ClientToInterface", tag)
	}
	if d.err != nil {
		return nil, d.err
	}
	return msg, nil
}

// InterfaceToClient decodes one interface intent.
func (d *Decoder) InterfaceToClient() (InterfaceToClient, error) {
	var msg InterfaceToClient
	switch tag := d.u8(); {
	case d.err != nil:
	case tag == tagInputPlaceBomb:
		msg = PlaceBomb{}
	case tag == tagInputPlaceBlock:
		msg = PlaceBlock{}
	case tag == tagInputMove:
		msg = Move{Direction: d.direction()}
	default:
		d.fail("InterfaceToClient", tag)
	}
	if d.err != nil {
		return nil, d.err
	}
	return msg, nil
}

func (d *Decoder) direction() Direction {
	v := d.u8()
	if d.err == nil && v > uint8(DirLeft) {
		d.err = &UnknownDiscriminantError{Sum: "Direction", Value: v}
	}
	return Direction(v)
}

func (d *Decoder) event() Event {
	var ev Event
	switch tag := d.u8(); {
	case d.err != nil:
	case tag == tagBombPlaced:
		ev = BombPlaced{ID: BombID(d.u32()), Position: d.position()}
	case tag == tagBombExploded:
		id := BombID(d.u32())
		robots := d.playerIDs()
		blocks := d.positions()
		ev = BombExploded{ID: id, RobotsDestroyed: robots, BlocksDestroyed: blocks}
	case tag == tagPlayerMoved:
		ev = PlayerMoved{ID: PlayerID(d.u8()), Position: d.position()}
	case tag == tagBlockPlaced:
		ev = BlockPlaced{Position: d.position()}
	default:
		d.fail("Event", tag)
	}
	return ev
}

// count reads a container length. The initial allocation below is capped so
// a corrupt length cannot force a huge up-front allocation; the slices grow
// to the real size as elements arrive.
func (d *Decoder) count() (int, int) {
	n := int(d.u32())
	return n, min(n, 1024)
}

func (d *Decoder) events() []Event {
	n, c := d.count()
	evs := make([]Event, 0, c)
	for i := 0; i < n && d.err == nil; i++ {
		evs = append(evs, d.event())
	}
	return evs
}

func (d *Decoder) positions() []Position {
	n, c := d.count()
	ps := make([]Position, 0, c)
	for i := 0; i < n && d.err == nil; i++ {
		ps = append(ps, d.position())
	}
	return ps
}

func (d *Decoder) bombs() []Bomb {
	n, c := d.count()
	bs := make([]Bomb, 0, c)
	for i := 0; i < n && d.err == nil; i++ {
		pos := d.position()
		bs = append(bs, Bomb{Position: pos, Timer: d.u16()})
	}
	return bs
}

func (d *Decoder) playerIDs() []PlayerID {
	n, c := d.count()
	ids := make([]PlayerID, 0, c)
	for i := 0; i < n && d.err == nil; i++ {
		ids = append(ids, PlayerID(d.u8()))
	}
	return ids
}

func (d *Decoder) playerMap() map[PlayerID]Player {
	n, _ := d.count()
	m := make(map[PlayerID]Player)
	for i := 0; i < n && d.err == nil; i++ {
		id := PlayerID(d.u8())
		m[id] = d.player()
	}
	return m
}

func (d *Decoder) positionMap() map[PlayerID]Position {
	n, _ := d.count()
	m := make(map[PlayerID]Position)
	for i := 0; i < n && d.err == nil; i++ {
		id := PlayerID(d.u8())
		m[id] = d.position()
	}
	return m
}

func (d *Decoder) scoreMap() map[PlayerID]Score {
	n, _ := d.count()
	m := make(map[PlayerID]Score)
	for i := 0; i < n && d.err == nil; i++ {
		id := PlayerID(d.u8())
		m[id] = Score(d.u32())
	}
	return m
}

// DecodeInterfaceToClient decodes exactly one intent from a datagram.
// Trailing bytes after the message make the whole datagram invalid.
func DecodeInterfaceToClient(p []byte) (InterfaceToClient, error) {
	r := bytes.NewReader(p)
	msg, err := NewDecoder(r).InterfaceToClient()
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, &TrailingBytesError{Count: r.Len()}
	}
	return msg, nil
}

// DecodeClientToInterface decodes exactly one snapshot from a datagram.
func DecodeClientToInterface(p []byte) (ClientToInterface, error) {
	r := bytes.NewReader(p)
	msg, err := NewDecoder(r).ClientToInterface()
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, &TrailingBytesError{Count: r.Len()}
	}
	return msg, nil
}
