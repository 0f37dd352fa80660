// Command inspect reports the tensor shapes of an ONNX embedding model and
// suggests pruning parameters for its projection layer.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yalue/onnxruntime_go"

	"github.com/objones25/winnow/internal/prune"
)

func main() {
	var (
		modelPath = flag.String("model", os.Getenv("MODEL_PATH"), "path to the ONNX model")
		libPath   = flag.String("onnx-lib", os.Getenv("ONNX_LIB_PATH"), "path to the ONNX Runtime shared library")
	)
	flag.Parse()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	if *modelPath == "" {
		log.Fatal().Msg("-model or MODEL_PATH is required")
	}

	if *libPath != "" {
		if _, err := os.Stat(*libPath); os.IsNotExist(err) {
			log.Fatal().Str("path", *libPath).Msg("ONNX Runtime library not found")
		}
		onnxruntime_go.SetSharedLibraryPath(*libPath)
	}

	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ONNX Runtime environment")
	}
	defer onnxruntime_go.DestroyEnvironment()

	absPath, err := filepath.Abs(*modelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve model path")
	}
	if info, err := os.Stat(absPath); err != nil {
		log.Fatal().Err(err).Str("path", absPath).Msg("Model file not found")
	} else {
		fmt.Printf("Model: %s (%.2f MB)\n", filepath.Base(absPath), float64(info.Size())/1024/1024)
	}

	inputInfo, outputInfo, err := onnxruntime_go.GetInputOutputInfo(absPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read model input/output info")
	}

	fmt.Println("\nInput Tensors:")
	for i, info := range inputInfo {
		fmt.Printf("%d. Name: %s\n   Type: %s\n   Dimensions: %v\n",
			i+1, info.Name, info.DataType, info.Dimensions)
	}

	fmt.Println("\nOutput Tensors:")
	embeddingWidth := 0
	for i, info := range outputInfo {
		fmt.Printf("%d. Name: %s\n   Type: %s\n   Dimensions: %v\n",
			i+1, info.Name, info.DataType, info.Dimensions)
		// The embedding width is the last static dimension of the final
		// output tensor.
		for j := len(info.Dimensions) - 1; j >= 0; j-- {
			if info.Dimensions[j] > 1 {
				embeddingWidth = int(info.Dimensions[j])
				break
			}
		}
	}

	if embeddingWidth == 0 {
		log.Warn().Msg("could not determine embedding width from output shapes")
		return
	}

	// Starting points only: the influence-set size wants to cover a
	// meaningful share of the pre-projection space, and the drop budget
	// stays well under the output width so the greedy loop can stop on its
	// own when redundancy runs out.
	defaults := prune.DefaultConfig()
	suggestedTopK := defaults.TopK
	if suggestedTopK > embeddingWidth {
		suggestedTopK = embeddingWidth / 2
	}
	suggestedDrop := embeddingWidth / 8
	if suggestedDrop > defaults.DropNumber {
		suggestedDrop = defaults.DropNumber
	}

	fmt.Println("\nSuggested pruning parameters:")
	fmt.Printf("Embedding width: %d\n", embeddingWidth)
	fmt.Printf("top-k:           %d\n", suggestedTopK)
	fmt.Printf("drop budget:     %d\n", suggestedDrop)
	fmt.Println("\nExtract the projection tensor to safetensors, then run:")
	fmt.Printf("winnow -weights proj.safetensors -top-k %d -drop %d -out reduced.safetensors\n",
		suggestedTopK, suggestedDrop)
}
