// Command shmctl manages arena files formatted by the shmarena allocator.
package main

func main() {
	execute()
}
