package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner with the running version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String("                        _                               _   ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("__      __  ___   __ _ | | __  ___ __   __  ___  _ __  | |_ ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("\\ \\ /\\ / / / _ \\ / _` || |/ / / _ \\\\ \\ / / / _ \\| '_ \\ | __|").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(" \\ V  V / |  __/| (_| ||   < |  __/ \\ V / |  __/| | | || |_ ").Foreground(p.Color("#e879f9"))
	s5 := termenv.String("  \\_/\\_/   \\___| \\__,_||_|\\_\\ \\___|  \\_/   \\___||_| |_| \\__|").Foreground(p.Color("#f472b6"))
	ver := termenv.String("v" + version).Foreground(p.Color("#fb7185"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Printf("  %s\n", ver)
	fmt.Println()
}
