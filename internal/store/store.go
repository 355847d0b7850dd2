package store

import (
	"context"
	"database/sql"
)

// Stores bundles every repository backed by one database handle.
// Services use it to run writes that span several stores in one transaction:
//
//	err := stores.InTx(ctx, func(ctx context.Context, tx Stores) error {
//	    if _, err := tx.Words.ApplyReviewOutcome(ctx, id, outcome); err != nil {
//	        return err
//	    }
//	    _, err := tx.Users.AdjustPoints(ctx, userID, delta)
//	    return err
//	})
type Stores struct {
	DB       *sql.DB
	Words    WordStore
	Stats    StatsStore
	Sessions SessionStore
	Users    UserStore
	Groups   GroupStore
}

// WithTx returns a copy of the bundle whose stores all use tx.
func (s Stores) WithTx(tx *sql.Tx) Stores {
	return Stores{
		DB:       s.DB,
		Words:    s.Words.WithTx(tx),
		Stats:    s.Stats.WithTx(tx),
		Sessions: s.Sessions.WithTx(tx),
		Users:    s.Users.WithTx(tx),
		Groups:   s.Groups.WithTx(tx),
	}
}

// InTx runs fn in a transaction on s.DB with every store rebound to it.
func (s Stores) InTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error {
	return RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.WithTx(tx))
	})
}
