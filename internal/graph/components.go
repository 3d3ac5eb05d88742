package graph

import "slices"

// Components returns the connected components of the graph, edges taken as
// undirected. Members are sorted ascending and components are ordered by their
// smallest member.
func (g *Graph) Components() [][]int {
	visited := make([]bool, g.NodeCount())
	var components [][]int
	stack := make([]int, 0)

	for start := range g.Nodes {
		if visited[start] {
			continue
		}
		component := make([]int, 0)
		visited[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, u)

			for _, edge := range g.GetNeighbors(u) {
				v := edge.Opposite(u)
				if !visited[v] {
					visited[v] = true
					stack = append(stack, v)
				}
			}
		}
		slices.Sort(component)
		components = append(components, component)
	}
	return components
}

// LargestComponent returns the node indices of the biggest component. When
// several components share the maximum size, the one holding the smallest node
// index wins.
func (g *Graph) LargestComponent() []int {
	var largest []int
	for _, comp := range g.Components() {
		if len(comp) > len(largest) {
			largest = comp
		}
	}
	return largest
}
