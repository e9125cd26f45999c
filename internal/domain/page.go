package domain

// Page is a manageable page on the platform. AccessToken is the page-scoped
// token returned by /me/accounts; insight calls must use it, never the user
// token.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// FindPage returns the page with the given ID, or nil if none matches.
func FindPage(pages []Page, id string) *Page {
	for i := range pages {
		if pages[i].ID == id {
			return &pages[i]
		}
	}
	return nil
}
