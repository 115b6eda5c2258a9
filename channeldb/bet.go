package channeldb

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/litexio/scnode/wagererr"
)

// PutBet upserts a bet keyed by (channel_id, round). The full record is
// stored as a JSON payload column; channel_id/round/initiator/status are
// denormalized into their own columns purely so ListBets can push filtering
// and pagination down into SQL instead of scanning and decoding every row.
func (d *DB) PutBet(b *Bet) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("unable to encode bet: %w", err)
	}

	_, err = d.sql.Exec(`
		INSERT INTO bets (bet_id, channel_id, round, initiator, status, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, round) DO UPDATE SET
			bet_id = excluded.bet_id,
			initiator = excluded.initiator,
			status = excluded.status,
			payload = excluded.payload
	`, hexKey(b.BetID), hexKey(b.ChannelID), b.Round, b.Initiator.Bytes(), b.Status, payload)
	if err != nil {
		return fmt.Errorf("unable to persist bet: %w", err)
	}
	return nil
}

// GetBet fetches the bet for (channelID, round).
func (d *DB) GetBet(channelID [32]byte, round uint64) (*Bet, error) {
	row := d.sql.QueryRow(`SELECT payload FROM bets WHERE channel_id = ? AND round = ?`,
		hexKey(channelID), round)
	return scanBet(row, channelID, round)
}

// GetBetByID fetches the bet whose derived BetID matches id.
func (d *DB) GetBetByID(id [32]byte) (*Bet, error) {
	row := d.sql.QueryRow(`SELECT payload FROM bets WHERE bet_id = ?`, hexKey(id))
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, &wagererr.UnknownBetError{}
		}
		return nil, fmt.Errorf("unable to fetch bet %x: %w", id, err)
	}
	var b Bet
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("unable to decode bet %x: %w", id, err)
	}
	return &b, nil
}

func scanBet(row *sql.Row, channelID [32]byte, round uint64) (*Bet, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, &wagererr.UnknownBetError{ChannelID: channelID, Round: round}
		}
		return nil, fmt.Errorf("unable to fetch bet: %w", err)
	}
	var b Bet
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("unable to decode bet: %w", err)
	}
	return &b, nil
}

// ListBets returns bets matching filter, ordered by (channel_id, round),
// applying offset/limit after the WHERE clause - the listing primitive
// behind the client's GetAllBets API.
func (d *DB) ListBets(filter BetFilter, offset, limit int) ([]*Bet, error) {
	var clauses []string
	var args []interface{}

	if filter.ChannelID != nil {
		clauses = append(clauses, "channel_id = ?")
		args = append(args, hexKey(*filter.ChannelID))
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Initiator != nil {
		clauses = append(clauses, "initiator = ?")
		args = append(args, filter.Initiator.Bytes())
	}

	query := "SELECT payload FROM bets"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY channel_id, round LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := d.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to list bets: %w", err)
	}
	defer rows.Close()

	var out []*Bet
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("unable to scan bet row: %w", err)
		}
		var b Bet
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("unable to decode bet row: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func hexKey(id [32]byte) string {
	return hex.EncodeToString(id[:])
}
