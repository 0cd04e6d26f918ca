package coco

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// SplitOptions configures a train/val partition.
type SplitOptions struct {
	// Ratio is the fraction of images that land in the train shard.
	Ratio float64
	// Seed fixes the shuffle for reproducible splits. Zero seeds from the clock.
	Seed int64
}

// SplitResult holds the two shards of a partitioned dataset. Licenses, info
// and categories are carried into both shards verbatim.
type SplitResult struct {
	Train *Dataset
	Val   *Dataset
}

// Split shuffles the image list and partitions the dataset by Ratio. Every
// image and every annotation lands in exactly one shard; annotations follow
// their image.
func Split(ds *Dataset, opts SplitOptions) (*SplitResult, error) {
	if opts.Ratio <= 0 || opts.Ratio >= 1 {
		return nil, errors.Errorf("split ratio %g is outside (0, 1)", opts.Ratio)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	order := rng.Perm(len(ds.Images))
	numTrain := int(float64(len(ds.Images)) * opts.Ratio)

	trainIDs := make(map[int]bool, numTrain)
	for _, idx := range order[:numTrain] {
		trainIDs[ds.Images[idx].ID] = true
	}

	train := shardOf(ds)
	val := shardOf(ds)
	for _, img := range ds.Images {
		if trainIDs[img.ID] {
			train.Images = append(train.Images, img)
		} else {
			val.Images = append(val.Images, img)
		}
	}
	for _, ann := range ds.Annotations {
		if trainIDs[ann.ImageID] {
			train.Annotations = append(train.Annotations, ann)
		} else {
			val.Annotations = append(val.Annotations, ann)
		}
	}

	return &SplitResult{Train: train, Val: val}, nil
}

// shardOf starts an empty shard that shares the dataset's fixed tables.
func shardOf(ds *Dataset) *Dataset {
	return &Dataset{
		Licenses:    ds.Licenses,
		Info:        ds.Info,
		Categories:  append([]Category(nil), ds.Categories...),
		Images:      []Image{},
		Annotations: []Annotation{},
	}
}
