package main

import (
	"abstractvm/pkg/assembler"
	"abstractvm/pkg/opcode"
	"abstractvm/pkg/operand"
	"fmt"
)

func printStats(s assembler.Stats) {
	fmt.Printf("Lines %d, instructions %d, max stack depth %d\n", s.Lines, s.Instructions, s.MaxDepth)

	fmt.Printf("Opcodes (%d)\n", len(s.Opcodes))
	if len(s.Opcodes) == 0 {
		fmt.Println("  · No instructions found.")
	}
	for op := opcode.OpPush; op <= opcode.OpExit; op++ {
		if n := s.Opcodes[op]; n > 0 {
			fmt.Printf("  · %-6s %d\n", op, n)
		}
	}

	fmt.Printf("Literal types (%d)\n", len(s.Types))
	for t := operand.Int8; t <= operand.Double; t++ {
		if n := s.Types[t]; n > 0 {
			fmt.Printf("  · %-6s %d\n", t, n)
		}
	}
}

func printListing(prog *assembler.Program) {
	fmt.Println("Listing")
	fmt.Print(prog.String())
}
