package models

import (
	"time"

	"github.com/auction-indexer/internal/types"
)

// EventLog is a raw log entry returned by a log source, in ascending
// block/log-index order. Topics are 32-byte hex strings; Data is the
// hex-encoded ABI payload of the non-indexed fields.
type EventLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber uint64   `json:"blockNumber"`
	TxHash      string   `json:"txHash"`
	LogIndex    uint     `json:"logIndex"`
}

// Topic0 returns the event signature hash of the log, or "" when the log
// carries no topics.
func (l *EventLog) Topic0() string {
	if len(l.Topics) == 0 {
		return ""
	}
	return l.Topics[0]
}

// DecodedEvent is the decoder's output. Params holds named parameters when
// the signature decoded cleanly, positional keys ("0", "1", ...) for unnamed
// parameters, or the raw-payload degradation keys (_rawData, _rawTopics,
// _error) when decoding failed.
type DecodedEvent struct {
	EventName    string            `json:"eventName"`
	EventTopicID string            `json:"eventTopicId"`
	Params       map[string]string `json:"params"`
}

// ArchivedEvent is the append-only ClickHouse archive row for a decoded
// event; best-effort audit trail, never read back by the pipeline.
type ArchivedEvent struct {
	Chain       types.ChainID `json:"chain"`
	BlockNumber uint64        `json:"blockNumber"`
	TxHash      string        `json:"txHash"`
	LogIndex    uint          `json:"logIndex"`
	Contract    string        `json:"contract"`
	EventName   string        `json:"eventName"`
	Params      string        `json:"params"`
	IndexedAt   time.Time     `json:"indexedAt"`
}
