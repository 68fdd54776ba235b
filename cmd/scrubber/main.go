// Command scrubber replays recorded OCAP sessions on a scrubbable timeline.
package main

func main() {
	Execute()
}
