package redis

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"gavel/models"
)

var (
	ErrPointerType = errors.New("pointer type is not allowed")
)

const (
	fieldData      = "data"
	fieldKind      = "kind"
	fieldAuctionID = "auction_id"
)

// EncodeMessage 以 msgpack + base64 將資料放進 stream 訊息的 data 欄位
func EncodeMessage[T any](data T) (map[string]any, error) {
	const op = "EncodeMessage"
	if t := reflect.TypeOf(data); t != nil && t.Kind() == reflect.Ptr {
		return nil, fmt.Errorf("[%s] %w", op, ErrPointerType)
	}
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to marshal message, err=%w", op, err)
	}
	return map[string]any{
		fieldData: base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// DecodeMessage 還原 EncodeMessage 的結果，其他欄位會被忽略
func DecodeMessage[T any](message map[string]any) (T, error) {
	const op = "DecodeMessage"
	var result T
	if t := reflect.TypeOf(result); t != nil && t.Kind() == reflect.Ptr {
		return result, fmt.Errorf("[%s] %w", op, ErrPointerType)
	}
	encoded, ok := message[fieldData].(string)
	if !ok {
		return result, fmt.Errorf("[%s] data field not found or invalid type", op)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return result, fmt.Errorf("[%s] Fail to decode base64, err=%w", op, err)
	}
	if err := msgpack.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("[%s] Fail to unmarshal message, err=%w", op, err)
	}
	return result, nil
}

// EncodeEvent 除了 data 之外另外寫入 kind 與 auction_id，方便直接檢視 stream
func EncodeEvent(event models.Event) (map[string]any, error) {
	message, err := EncodeMessage(event)
	if err != nil {
		return nil, err
	}
	message[fieldKind] = string(event.Kind)
	message[fieldAuctionID] = event.AuctionID.String()
	return message, nil
}

func DecodeEvent(message map[string]any) (models.Event, error) {
	return DecodeMessage[models.Event](message)
}
