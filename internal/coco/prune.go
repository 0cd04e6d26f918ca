package coco

// Unlabelled returns the images that no annotation references, in table
// order. These are the frames a labelling pass skipped.
func (ds *Dataset) Unlabelled() []Image {
	labelled := make(map[int]bool, len(ds.Images))
	for _, ann := range ds.Annotations {
		labelled[ann.ImageID] = true
	}
	var out []Image
	for _, img := range ds.Images {
		if !labelled[img.ID] {
			out = append(out, img)
		}
	}
	return out
}

// DropImages returns a fresh dataset without the given image ids. Any
// annotations referencing a dropped image are removed with it, so the result
// never carries dangling references.
func (ds *Dataset) DropImages(ids map[int]bool) *Dataset {
	out := &Dataset{
		Licenses:   ds.Licenses,
		Info:       ds.Info,
		Categories: append([]Category(nil), ds.Categories...),
	}
	out.Images = make([]Image, 0, len(ds.Images))
	for _, img := range ds.Images {
		if !ids[img.ID] {
			out.Images = append(out.Images, img)
		}
	}
	out.Annotations = make([]Annotation, 0, len(ds.Annotations))
	for _, ann := range ds.Annotations {
		if !ids[ann.ImageID] {
			out.Annotations = append(out.Annotations, ann)
		}
	}
	return out
}
