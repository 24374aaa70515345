package model

import (
	"context"
	"encoding/json"
	"time"

	"lotto-server/common"
	"lotto-server/internal/lotto"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

const TableGameState = "game_state"

// gameStateID 单例行
const gameStateID = 1

// GameState 对应 game_state 表
type GameState struct {
	ID             int    `db:"id"`
	WindowKey      string `db:"window_key"`
	WinningSymbols string `db:"winning_symbols"`
	NextDrawAt     int64  `db:"next_draw_at"`
	ProcessID      string `db:"process_id"`
	UpdatedAt      int64  `db:"updated_at"`
}

var gameStateFields = common.EnumFields(GameState{})

// UpsertGameState 覆盖写单例行
func UpsertGameState(ctx context.Context, exec sqlx.ExtContext, gs lotto.GameState) error {
	win, err := json.Marshal(gs.Winning)
	if err != nil {
		return err
	}
	sqlStr := `INSERT INTO game_state (id, window_key, winning_symbols, next_draw_at, process_id, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE window_key = VALUES(window_key), winning_symbols = VALUES(winning_symbols),
	           next_draw_at = VALUES(next_draw_at), process_id = VALUES(process_id), updated_at = VALUES(updated_at)`
	_, err = exec.ExecContext(ctx, sqlStr, gameStateID, gs.WindowKey, string(win),
		gs.NextDrawAt.UnixMilli(), gs.ProcessID, gs.UpdatedAt.UnixMilli())
	return err
}

// GetGameState 读取单例行
func GetGameState(ctx context.Context, q sqlx.QueryerContext) (lotto.GameState, error) {
	var row GameState
	if err := common.SelectOneExtCtx(ctx, q, &row, TableGameState, gameStateFields, g.C("id").Eq(gameStateID)); err != nil {
		return lotto.GameState{}, err
	}
	win, err := decodeSymbols(row.WinningSymbols)
	if err != nil {
		return lotto.GameState{}, err
	}
	return lotto.GameState{
		WindowKey:  row.WindowKey,
		Winning:    win,
		NextDrawAt: time.UnixMilli(row.NextDrawAt).UTC(),
		ProcessID:  row.ProcessID,
		UpdatedAt:  time.UnixMilli(row.UpdatedAt).UTC(),
	}, nil
}
