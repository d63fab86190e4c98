package main

import "github.com/costcompass/llm-price-compass/internal/cli"

func main() {
	cli.Execute()
}
