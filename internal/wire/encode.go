package wire

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Wire ordinals. These values are part of the protocol and must not be
// reordered.
const (
	tagJoin       byte = 0
	tagPlaceBomb  byte = 1
	tagPlaceBlock byte = 2
	tagMove       byte = 3

	tagHello          byte = 0
	tagAcceptedPlayer byte = 1
	tagGameStarted    byte = 2
	tagTurn           byte = 3
	tagGameEnded      byte = 4

	tagLobby byte = 0
	tagGame  byte = 1

	tagInputPlaceBomb  byte = 0
	tagInputPlaceBlock byte = 1
	tagInputMove       byte = 2

	tagBombPlaced   byte = 0
	tagBombExploded byte = 1
	tagPlayerMoved  byte = 2
	tagBlockPlaced  byte = 3
)

// AppendClientToServer appends the encoding of msg to b.
func AppendClientToServer(b []byte, msg ClientToServer) ([]byte, error) {
	switch m := msg.(type) {
	case Join:
		b = append(b, tagJoin)
		return appendString(b, m.Name)
	case PlaceBomb:
		return append(b, tagPlaceBomb), nil
	case PlaceBlock:
		return append(b, tagPlaceBlock), nil
	case Move:
		return append(b, tagMove, byte(m.Direction)), nil
	}
	return b, fmt.Errorf("wire: unencodable ClientToServer %T", msg)
}

// AppendServerToClient appends the encoding of msg to b.
func AppendServerToClient(b []byte, msg ServerToClient) ([]byte, error) {
	switch m := msg.(type) {
	case Hello:
		b = append(b, tagHello)
		b, err := appendString(b, m.ServerName)
		if err != nil {
			return b, err
		}
		b = append(b, m.PlayersCount)
		b = binary.BigEndian.AppendUint16(b, m.SizeX)
		b = binary.BigEndian.AppendUint16(b, m.SizeY)
		b = binary.BigEndian.AppendUint16(b, m.GameLength)
		b = binary.BigEndian.AppendUint16(b, m.ExplosionRadius)
		b = binary.BigEndian.AppendUint16(b, m.BombTimer)
		return b, nil
	case AcceptedPlayer:
		b = append(b, tagAcceptedPlayer, byte(m.ID))
		return appendPlayer(b, m.Player)
	case GameStarted:
		b = append(b, tagGameStarted)
		return appendPlayerMap(b, m.Players)
	case Turn:
		b = append(b, tagTurn)
		b = binary.BigEndian.AppendUint16(b, m.Turn)
		b = binary.BigEndian.AppendUint32(b, uint32(len(m.Events)))
		var err error
		for _, ev := range m.Events {
			if b, err = appendEvent(b, ev); err != nil {
				return b, err
			}
		}
		return b, nil
	case GameEnded:
		b = append(b, tagGameEnded)
		return appendScoreMap(b, m.Scores), nil
	}
	return b, fmt.Errorf("wire: unencodable ServerToClient %T", msg)
}

// AppendClientToInterface appends the encoding of msg to b.
func AppendClientToInterface(b []byte, msg ClientToInterface) ([]byte, error) {
	switch m := msg.(type) {
	case Lobby:
		b = append(b, tagLobby)
		b, err := appendString(b, m.ServerName)
		if err != nil {
			return b, err
		}
		b = append(b, m.PlayersCount)
		b = binary.BigEndian.AppendUint16(b, m.SizeX)
		b = binary.BigEndian.AppendUint16(b, m.SizeY)
		b = binary.BigEndian.AppendUint16(b, m.GameLength)
		b = binary.BigEndian.AppendUint16(b, m.ExplosionRadius)
		b = binary.BigEndian.AppendUint16(b, m.BombTimer)
		return appendPlayerMap(b, m.Players)
	case Game:
		b = append(b, tagGame)
		b, err := appendString(b, m.ServerName)
		if err != nil {
			return b, err
		}
		b = binary.BigEndian.AppendUint16(b, m.SizeX)
		b = binary.BigEndian.AppendUint16(b, m.SizeY)
		b = binary.BigEndian.AppendUint16(b, m.GameLength)
		b = binary.BigEndian.AppendUint16(b, m.Turn)
		if b, err = appendPlayerMap(b, m.Players); err != nil {
			return b, err
		}
		b = appendPositionMap(b, m.PlayerPositions)
		b = appendPositions(b, m.Blocks)
		b = appendBombs(b, m.Bombs)
		b = appendPositions(b, m.Explosions)
		return appendScoreMap(b, m.Scores), nil
	}
	return b, fmt.Errorf("wire: unencodable ClientToInterface %T", msg)
}

// AppendInterfaceToClient appends the encoding of msg to b.
func AppendInterfaceToClient(b []byte, msg InterfaceToClient) ([]byte, error) {
	switch m := msg.(type) {
	case PlaceBomb:
		return append(b, tagInputPlaceBomb), nil
	case PlaceBlock:
		return append(b, tagInputPlaceBlock), nil
	case Move:
		return append(b, tagInputMove, byte(m.Direction)), nil
	}
	return b, fmt.Errorf("wire: unencodable InterfaceToClient %T", msg)
}

func appendEvent(b []byte, ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case BombPlaced:
		b = append(b, tagBombPlaced)
		b = binary.BigEndian.AppendUint32(b, uint32(e.ID))
		return appendPosition(b, e.Position), nil
	case BombExploded:
		b = append(b, tagBombExploded)
		b = binary.BigEndian.AppendUint32(b, uint32(e.ID))
		b = binary.BigEndian.AppendUint32(b, uint32(len(e.RobotsDestroyed)))
		for _, id := range e.RobotsDestroyed {
			b = append(b, byte(id))
		}
		return appendPositions(b, e.BlocksDestroyed), nil
	case PlayerMoved:
		b = append(b, tagPlayerMoved, byte(e.ID))
		return appendPosition(b, e.Position), nil
	case BlockPlaced:
		b = append(b, tagBlockPlaced)
		return appendPosition(b, e.Position), nil
	}
	return b, fmt.Errorf("wire: unencodable Event %T", ev)
}

func appendString(b []byte, s string) ([]byte, error) {
	if len(s) > 255 {
		return b, ErrStringTooLong
	}
	b = append(b, byte(len(s)))
	return append(b, s...), nil
}

func appendPosition(b []byte, p Position) []byte {
	b = binary.BigEndian.AppendUint16(b, p.X)
	return binary.BigEndian.AppendUint16(b, p.Y)
}

func appendPlayer(b []byte, p Player) ([]byte, error) {
	b, err := appendString(b, p.Name)
	if err != nil {
		return b, err
	}
	return appendString(b, p.Address)
}

// appendPlayerMap emits entries in ascending PlayerID order; map iteration
// order is not part of the wire format, key order is.
func appendPlayerMap(b []byte, m map[PlayerID]Player) ([]byte, error) {
	b = binary.BigEndian.AppendUint32(b, uint32(len(m)))
	var err error
	for _, id := range sortedKeys(m) {
		b = append(b, byte(id))
		if b, err = appendPlayer(b, m[id]); err != nil {
			return b, err
		}
	}
	return b, nil
}

func appendScoreMap(b []byte, m map[PlayerID]Score) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(m)))
	for _, id := range sortedKeys(m) {
		b = append(b, byte(id))
		b = binary.BigEndian.AppendUint32(b, uint32(m[id]))
	}
	return b
}

func appendPositionMap(b []byte, m map[PlayerID]Position) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(m)))
	for _, id := range sortedKeys(m) {
		b = append(b, byte(id))
		b = appendPosition(b, m[id])
	}
	return b
}

func appendPositions(b []byte, ps []Position) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(ps)))
	for _, p := range ps {
		b = appendPosition(b, p)
	}
	return b
}

func appendBombs(b []byte, bombs []Bomb) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(bombs)))
	for _, bomb := range bombs {
		b = appendPosition(b, bomb.Position)
		b = binary.BigEndian.AppendUint16(b, bomb.Timer)
	}
	return b
}

func sortedKeys[V any](m map[PlayerID]V) []PlayerID {
	ids := make([]PlayerID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
