package resolve

import "testing"

func matrixFromEdges(n int, edges map[[2]int]float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for pair, score := range edges {
		m[pair[0]][pair[1]] = score
		m[pair[1]][pair[0]] = score
	}
	return m
}

func TestClusterThreshold_ConnectedComponents(t *testing.T) {
	// 0-1 connected at 0.9; 2 isolated.
	m := matrixFromEdges(3, map[[2]int]float64{{0, 1}: 0.9})
	clusters := clusterThreshold(m, 0.75)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %+v", len(clusters), clusters)
	}
}

func TestClusterThreshold_Chain(t *testing.T) {
	// 0-1 at 0.8, 1-2 at 0.8, 0-2 below threshold: still one component via
	// transitivity of the graph traversal.
	m := matrixFromEdges(3, map[[2]int]float64{{0, 1}: 0.8, {1, 2}: 0.8})
	clusters := clusterThreshold(m, 0.75)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 transitive cluster, got %d: %+v", len(clusters), clusters)
	}
}

func TestClusterDBSCAN_MinPtsOneMatchesThreshold(t *testing.T) {
	m := matrixFromEdges(4, map[[2]int]float64{{0, 1}: 0.9, {2, 3}: 0.8})
	thresholdClusters := clusterThreshold(m, 0.75)
	dbscanClusters := clusterDBSCAN(m, 0.75, 1)
	if len(thresholdClusters) != len(dbscanClusters) {
		t.Fatalf("expected dbscan with minPts=1 to match threshold clustering: %d vs %d", len(thresholdClusters), len(dbscanClusters))
	}
}

func TestClusterDBSCAN_HigherMinPtsProducesMoreNoise(t *testing.T) {
	// A single pair above threshold, each point has only 1 neighbor.
	m := matrixFromEdges(3, map[[2]int]float64{{0, 1}: 0.9})
	clusters := clusterDBSCAN(m, 0.75, 3)
	for _, c := range clusters {
		if len(c) > 1 {
			t.Fatalf("expected minPts=3 to leave every point as noise (singleton), got cluster %+v", c)
		}
	}
}
