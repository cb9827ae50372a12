package main

import (
	"os"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/app"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/pipeline"
)

func main() {
	os.Exit(app.Main("avs-dob", pipeline.StageDOB))
}
