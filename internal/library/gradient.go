package library

import (
	"fmt"
	"math/rand"
)

// gradientColors is the palette default artwork draws from. Dark-to-bright
// pairs render legibly behind white track titles.
var gradientColors = []string{
	"#1a2a6c", "#b21f1f", "#fdbb2d", "#0f2027", "#2c5364",
	"#8e2de2", "#4a00e0", "#f953c6", "#b91d73", "#11998e",
	"#38ef7d", "#fc4a1a", "#f7b733", "#243949", "#517fa4",
}

// RandomGradient returns a two-color angular gradient descriptor. It is
// generated once per track and persisted, so the random choice becomes the
// track's stable visual identity.
func RandomGradient() string {
	i := rand.Intn(len(gradientColors))
	j := rand.Intn(len(gradientColors) - 1)
	if j >= i {
		j++
	}
	angle := rand.Intn(360)
	return fmt.Sprintf("linear-gradient(%ddeg, %s, %s)", angle, gradientColors[i], gradientColors[j])
}
