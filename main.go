// Public domain.

package main

import "github.com/soniakeys/apass/internal/prog"

func main() {
	prog.Main()
}
