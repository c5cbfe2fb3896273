package tidisk

import (
	"reflect"
	"sort"
	"strings"

	"github.com/dsoprea/go-logging"
)

const (
	// PathSeparator joins the names in a full path.
	PathSeparator = "."
)

// TreeNode is one directory or file in the tree.
type TreeNode struct {
	name string

	directory *Directory
	file      *FileDescriptor

	childrenFolders sort.StringSlice
	childrenFiles   sort.StringSlice

	childrenMap map[string]*TreeNode
}

func newTreeNode(name string, directory *Directory, file *FileDescriptor) (tn *TreeNode) {
	tn = &TreeNode{
		name:      name,
		directory: directory,
		file:      file,

		childrenFolders: make(sort.StringSlice, 0),
		childrenFiles:   make(sort.StringSlice, 0),

		childrenMap: make(map[string]*TreeNode),
	}

	return tn
}

func (tn *TreeNode) Name() string {
	return tn.name
}

// Directory returns the directory, or nil if this is a file.
func (tn *TreeNode) Directory() *Directory {
	return tn.directory
}

// File returns the head descriptor, or nil if this is a directory.
func (tn *TreeNode) File() *FileDescriptor {
	return tn.file
}

func (tn *TreeNode) IsDirectory() bool {
	return tn.directory != nil
}

// Entity returns the directory or the file.
func (tn *TreeNode) Entity() Entity {
	if tn.directory != nil {
		return tn.directory
	}

	return tn.file
}

func (tn *TreeNode) ChildFolders() []string {
	return tn.childrenFolders
}

func (tn *TreeNode) ChildFiles() []string {
	return tn.childrenFiles
}

func (tn *TreeNode) GetChild(name string) *TreeNode {
	return tn.childrenMap[name]
}

// Lookup finds a descendant by the names below this node.
func (tn *TreeNode) Lookup(pathParts []string) *TreeNode {
	if len(pathParts) == 0 {
		return tn
	}

	childNode := tn.childrenMap[pathParts[0]]
	if childNode == nil {
		return nil
	}

	return childNode.Lookup(pathParts[1:])
}

func (tn *TreeNode) addChild(childNode *TreeNode) {
	name := childNode.name

	var list sort.StringSlice
	if childNode.IsDirectory() == true {
		list = tn.childrenFolders
	} else {
		list = tn.childrenFiles
	}

	// A corrupt image can list the same name twice. The first one wins.
	if _, found := tn.childrenMap[name]; found == true {
		return
	}

	insertAt := list.Search(name)
	list = append(list, "")
	copy(list[insertAt+1:], list[insertAt:])
	list[insertAt] = name

	if childNode.IsDirectory() == true {
		tn.childrenFolders = list
	} else {
		tn.childrenFiles = list
	}

	tn.childrenMap[name] = childNode
}

// Tree is a name-addressable view of the decoded directory hierarchy.
type Tree struct {
	volume   *Volume
	rootNode *TreeNode
}

func NewTree(volume *Volume) *Tree {
	root := volume.Root()

	return &Tree{
		volume:   volume,
		rootNode: newTreeNode(root.Name(), root, nil),
	}
}

func (tree *Tree) loadDirectory(node *TreeNode) {
	dir := node.directory

	for _, fd := range dir.Files() {
		node.addChild(newTreeNode(fd.Name(), nil, fd))
	}

	for _, child := range dir.Subdirectories() {
		childNode := newTreeNode(child.Name(), child, nil)
		node.addChild(childNode)

		tree.loadDirectory(childNode)
	}
}

// Load builds the tree from the decoded directories.
func (tree *Tree) Load() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	tree.loadDirectory(tree.rootNode)

	return nil
}

// Root returns the node of the root directory.
func (tree *Tree) Root() *TreeNode {
	return tree.rootNode
}

// Lookup finds a node by the names below the root.
func (tree *Tree) Lookup(pathParts []string) (node *TreeNode) {
	return tree.rootNode.Lookup(pathParts)
}

// LookupPath finds a node by its full dotted path, volume name included.
func (tree *Tree) LookupPath(fullPath string) (node *TreeNode) {
	pathParts := strings.Split(fullPath, PathSeparator)
	if pathParts[0] != tree.rootNode.name {
		return nil
	}

	return tree.rootNode.Lookup(pathParts[1:])
}

// TreeVisitorFunc is called for every node. `pathParts` starts with the
// volume name.
type TreeVisitorFunc func(pathParts []string, node *TreeNode) (err error)

// Visit calls the callback for the root, then for each subdirectory (depth
// first) and finally for the files of each directory.
func (tree *Tree) Visit(cb TreeVisitorFunc) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	pathParts := []string{tree.rootNode.name}

	err = tree.visit(pathParts, tree.rootNode, cb)
	log.PanicIf(err)

	return nil
}

func (tree *Tree) visit(pathParts []string, node *TreeNode, cb TreeVisitorFunc) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	err = cb(pathParts, node)
	log.PanicIf(err)

	for _, childFolderName := range node.childrenFolders {
		childNode := node.childrenMap[childFolderName]

		childPathParts := make([]string, len(pathParts)+1)
		copy(childPathParts, pathParts)
		childPathParts[len(childPathParts)-1] = childFolderName

		err := tree.visit(childPathParts, childNode, cb)
		log.PanicIf(err)
	}

	// Do the files all at once, at the bottom.
	for _, childFilename := range node.childrenFiles {
		childNode := node.childrenMap[childFilename]

		childPathParts := make([]string, len(pathParts)+1)
		copy(childPathParts, pathParts)
		childPathParts[len(childPathParts)-1] = childFilename

		err := cb(childPathParts, childNode)
		log.PanicIf(err)
	}

	return nil
}

// List returns the full path of every directory and file below the root,
// plus an index from full path to node.
func (tree *Tree) List() (files []string, nodes map[string]*TreeNode, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	files = make([]string, 0)
	nodes = make(map[string]*TreeNode)

	cb := func(pathParts []string, node *TreeNode) (err error) {
		if len(pathParts) == 1 {
			return nil
		}

		nodePath := strings.Join(pathParts, PathSeparator)

		files = append(files, nodePath)
		nodes[nodePath] = node

		return nil
	}

	err = tree.Visit(cb)
	log.PanicIf(err)

	return files, nodes, nil
}
