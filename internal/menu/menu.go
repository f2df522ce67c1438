// Package menu implements the side menu that wraps every screen of the shell.
package menu

import (
	"errors"
	"fmt"

	"github.com/appshell-dev/appshell/internal/store"
)

var ErrUnknownItem = errors.New("unknown menu item")

// ItemID identifies a menu entry
type ItemID string

const (
	ItemHome          ItemID = "home"
	ItemSession       ItemID = "session"
	ItemNotifications ItemID = "notifications"
	ItemSignIn        ItemID = "sign_in"
	ItemSignOut       ItemID = "sign_out"
)

// Item is one menu entry
type Item struct {
	ID    ItemID `json:"id"`
	Label string `json:"label"`
}

// SideMenu reads and writes the side menu state in the store
type SideMenu struct {
	store *store.Store
}

func New(st *store.Store) *SideMenu {
	return &SideMenu{store: st}
}

func (m *SideMenu) IsOpen() bool {
	return store.Select(m.store, store.SelectSideMenuIsOpen)
}

func (m *SideMenu) Open() {
	m.store.Dispatch(store.SetSideMenuIsOpen{IsOpen: true})
}

func (m *SideMenu) Close() {
	m.store.Dispatch(store.SetSideMenuIsOpen{IsOpen: false})
}

func (m *SideMenu) Toggle() {
	m.store.Dispatch(store.SetSideMenuIsOpen{IsOpen: !m.IsOpen()})
}

// Items lists the entries for the current session. The last entry is
// "Sign out" when authenticated and "Sign in" otherwise.
func (m *SideMenu) Items() []Item {
	items := []Item{
		{ID: ItemHome, Label: "Home"},
		{ID: ItemSession, Label: "Session"},
		{ID: ItemNotifications, Label: "Notifications"},
	}

	if store.Select(m.store, store.SelectIsAuthenticated) {
		return append(items, Item{ID: ItemSignOut, Label: "Sign out"})
	}
	return append(items, Item{ID: ItemSignIn, Label: "Sign in"})
}

// Select picks an entry. The menu closes on selection, except for "Sign out",
// which leaves closing to the sign-out flow so a failed sign-out keeps the
// menu visible.
func (m *SideMenu) Select(id ItemID) (Item, error) {
	for _, item := range m.Items() {
		if item.ID != id {
			continue
		}
		if id != ItemSignOut {
			m.Close()
		}
		return item, nil
	}
	return Item{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
}
