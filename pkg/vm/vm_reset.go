package vm

import (
	"abstractvm/pkg/operand"
	"io"
	"sync"
)

// Reset clears the stack and the halt flag so the machine can run another
// program, keeping the stack's capacity.
func (vm *VM) Reset() {
	for i := range vm.stack {
		vm.stack[i] = operand.Operand{}
	}
	vm.stack = vm.stack[:0]
	vm.halted = false
}

// Machine pool for sessions that come and go, avoiding a fresh stack each time
var machinePool = sync.Pool{
	New: func() interface{} {
		return New(io.Discard)
	},
}

// Get retrieves a reset machine from the pool that writes to out.
func Get(out io.Writer) *VM {
	vm := machinePool.Get().(*VM)
	if out == nil {
		out = io.Discard
	}
	vm.out = out
	return vm
}

// Put returns a machine to the pool after use.
func Put(vm *VM) {
	vm.Reset()
	vm.out = io.Discard
	machinePool.Put(vm)
}
