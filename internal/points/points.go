// Package points keeps FOCUS balances for every known user.
package points

import (
	"errors"
	"sort"

	"focus-quest-bot/internal/model"
)

// Points errors.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientPoints = errors.New("insufficient available points")
)

// Book is a keyed table of FOCUS accounts. Accounts are created lazily with
// zero balances on first access.
//
// Book is not safe for concurrent use; callers serialise transitions.
type Book struct {
	accounts map[int64]*model.PointsAccount
}

// NewBook creates an empty Book.
func NewBook() *Book {
	return &Book{accounts: make(map[int64]*model.PointsAccount)}
}

func (b *Book) account(userID int64) *model.PointsAccount {
	acc, ok := b.accounts[userID]
	if !ok {
		acc = &model.PointsAccount{UserID: userID}
		b.accounts[userID] = acc
	}
	return acc
}

// Get returns a copy of the user's account.
func (b *Book) Get(userID int64) model.PointsAccount {
	if acc, ok := b.accounts[userID]; ok {
		return *acc
	}
	return model.PointsAccount{UserID: userID}
}

// Credit adds amount to both the total and the available balance.
// Used for quest rewards and quiz rewards.
func (b *Book) Credit(userID int64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acc := b.account(userID)
	acc.TotalPoints += amount
	acc.AvailablePoints += amount
	return nil
}

// Receive adds amount to the total only. Donations land here, so the
// recipient cannot immediately re-spend what they were given.
func (b *Book) Receive(userID int64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	b.account(userID).TotalPoints += amount
	return nil
}

// Debit removes amount from the available balance.
// The account is left untouched when the balance is short.
func (b *Book) Debit(userID int64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acc := b.account(userID)
	if acc.AvailablePoints < amount {
		return ErrInsufficientPoints
	}
	acc.AvailablePoints -= amount
	return nil
}

// CanSpend reports whether the user has at least amount available.
func (b *Book) CanSpend(userID int64, amount int64) bool {
	return b.Get(userID).AvailablePoints >= amount
}

// Adjust applies a manual correction to both balances. Negative results
// are clamped at zero.
func (b *Book) Adjust(userID int64, totalDelta, availableDelta int64) model.PointsAccount {
	acc := b.account(userID)
	acc.TotalPoints = max(acc.TotalPoints+totalDelta, 0)
	acc.AvailablePoints = max(acc.AvailablePoints+availableDelta, 0)
	return *acc
}

// Top returns up to limit accounts ordered by total points, highest first.
// Ties are broken by user id.
func (b *Book) Top(limit int) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(b.accounts))
	for id, acc := range b.accounts {
		if acc.TotalPoints == 0 {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{UserID: id, Score: acc.TotalPoints})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
