package models

// RecipientToken is one registered device in the token collection.
type RecipientToken struct {
	ID    string `firestore:"-" json:"id"`
	Token string `firestore:"token" json:"token"`
}

// TokenValues extracts the token strings, dropping blank entries.
func TokenValues(tokens []RecipientToken) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		out = append(out, t.Token)
	}
	return out
}
