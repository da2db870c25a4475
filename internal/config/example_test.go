package config_test

import (
	"fmt"
	"log"
	"os"

	"github.com/robert-malhotra/s1prep/internal/config"
)

func ExampleLoad() {
	os.Setenv("INPUT_PATH", "/data/s1/download")
	os.Setenv("OUTPUT_PATH", "/data/s1/preprocess")
	defer os.Unsetenv("INPUT_PATH")
	defer os.Unsetenv("OUTPUT_PATH")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Input: %s\n", cfg.Preprocess.InputPath)
	fmt.Printf("Output: %s\n", cfg.Preprocess.OutputPath)
	fmt.Printf("Pause: %s\n", cfg.Preprocess.Pause)
	fmt.Printf("gpt: %s\n", cfg.SNAP.GPTPath)

	// Output:
	// Input: /data/s1/download
	// Output: /data/s1/preprocess
	// Pause: 30s
	// gpt: gpt
}
