// Command sigplot evaluates and plots signal expressions.
package main

func main() {
	Execute()
}
