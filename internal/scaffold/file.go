package scaffold

import (
	"os"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/evilmagics/kitti/internal/utils"
)

// ManifestFile is written at a dataset root after a successful scaffold.
const ManifestFile = ".kitti.yaml"

type registryFile struct {
	Datasets []*Descriptor `yaml:"datasets"`
}

// Load reads a registry from a YAML file listing descriptors, for mirrors
// that lay archives out differently from the public bucket.
func Load(fs afero.Fs, src string) (*Registry, error) {
	b, err := afero.ReadFile(fs, src)
	if err != nil {
		return nil, errors.Wrapf(utils.ErrConfiguration, "registry %s: %v", src, err)
	}

	rf := new(registryFile)
	if err = yaml.Unmarshal(b, rf); err != nil {
		return nil, errors.Wrapf(utils.ErrConfiguration, "registry %s: %v", src, err)
	}
	for _, d := range rf.Datasets {
		if d.Name == "" || len(d.Archives) == 0 {
			return nil, errors.Wrapf(utils.ErrConfiguration, "registry %s: descriptor without name or archives", src)
		}
	}
	return NewRegistry(rf.Datasets...), nil
}

// Save writes the registry in the format Load reads.
func (r *Registry) Save(fs afero.Fs, dst string) error {
	rf := registryFile{}
	for _, n := range r.Names() {
		rf.Datasets = append(rf.Datasets, r.descriptors[n])
	}
	b, err := yaml.Marshal(rf)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, dst, b, os.ModePerm)
}

// Manifest records which dataset was scaffolded at a root. Verification
// never reads it.
type Manifest struct {
	Name     Name      `yaml:"name" json:"name"`
	Archives []string  `yaml:"archives" json:"archives"`
	Created  time.Time `yaml:"created" json:"created"`
}

func NewManifest(d *Descriptor) *Manifest {
	m := &Manifest{Name: d.Name, Created: time.Now().UTC()}
	for _, a := range d.Archives {
		m.Archives = append(m.Archives, a.File())
	}
	return m
}

func (m Manifest) Save(fs afero.Fs, root string) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path.Join(root, ManifestFile), b, os.ModePerm)
}

func LoadManifest(fs afero.Fs, root string) (*Manifest, error) {
	b, err := afero.ReadFile(fs, path.Join(root, ManifestFile))
	if err != nil {
		return nil, err
	}

	m := new(Manifest)
	err = yaml.Unmarshal(b, m)
	return m, err
}
