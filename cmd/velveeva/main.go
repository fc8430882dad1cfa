// Command velveeva builds, packages and publishes slide decks.
package main

func main() {
	Execute()
}
