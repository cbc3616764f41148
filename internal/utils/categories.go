package utils

// Split names a subset of a KITTI benchmark.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
	SplitAll   Split = "all"
)

var (
	splitCrossName = map[string]Split{
		"train":      SplitTrain,
		"training":   SplitTrain,
		"val":        SplitVal,
		"valid":      SplitVal,
		"validation": SplitVal,
		"test":       SplitTest,
		"tests":      SplitTest,
		"testing":    SplitTest,
		"all":        SplitAll,
	}
)

// FindSplit resolves a split name or one of its aliases.
func FindSplit(name string) *Split {
	if s := splitCrossName[name]; s != "" {
		return &s
	}
	return nil
}

func IsSplitDetected(name string) bool {
	return FindSplit(name) != nil
}

// Folders returns the top level folders of a depth benchmark root that
// hold annotated drives for the split.
func (s Split) Folders() []string {
	switch s {
	case SplitTrain:
		return []string{"train"}
	case SplitVal:
		return []string{"val"}
	case SplitAll:
		return []string{"train", "val"}
	}
	return nil
}
